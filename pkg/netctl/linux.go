package netctl

import (
	"context"
	"net"
	"os/exec"
	"strings"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/containernetworking/plugins/pkg/utils/sysctl"
	"github.com/pkg/errors"
	"github.com/safchain/ethtool"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"micronet/api"
	"micronet/pkg/util"
)

const (
	smcrouted   = "smcrouted"
	smcroutectl = "smcroutectl"

	netemLimit = 1000 // packets, the tc default
)

// offloadFeatures are turned off on every veth endpoint (ethtool -K tso off gso off)
var offloadFeatures = map[string]bool{
	"tx-tcp-segmentation":     false,
	"tx-tcp6-segmentation":    false,
	"tx-generic-segmentation": false,
}

// Linux drives the host kernel. Node namespaces are owned by backend.
type Linux struct {
	backend Backend
}

func NewLinux(backend Backend) *Linux {
	return &Linux{backend: backend}
}

var _ Controller = &Linux{}

// do runs fn with the calling thread inside node's namespace
func (l *Linux) do(node string, fn func() error) error {
	path, err := l.backend.Path(context.Background(), node)
	if err != nil {
		return err
	}
	nodeNs, err := ns.GetNS(path)
	if err != nil {
		return errors.Wrapf(err, "failed to get namespace for node %s", node)
	}
	defer nodeNs.Close()

	return nodeNs.Do(func(_ ns.NetNS) error {
		return fn()
	})
}

func (l *Linux) CreateNamespace(ctx context.Context, node string) (string, error) {
	return l.backend.Create(ctx, node)
}

func (l *Linux) DestroyNamespace(ctx context.Context, node string) error {
	return l.backend.Destroy(ctx, node)
}

// EnableForwarding : sysctl net.ipv4.ip_forward=1
func (l *Linux) EnableForwarding(node string, ipv6 bool) error {
	return l.do(node, func() error {
		if _, err := sysctl.Sysctl("net/ipv4/ip_forward", "1"); err != nil {
			return errors.Wrap(err, "enable ipv4 forwarding")
		}
		if ipv6 {
			if _, err := sysctl.Sysctl("net/ipv6/conf/all/forwarding", "1"); err != nil {
				return errors.Wrap(err, "enable ipv6 forwarding")
			}
		}
		return nil
	})
}

// CreateVethPair :
// ip link add veth-1-2-0 type veth peer name veth-1-2-1
// ip link set veth-1-2-0 netns 1
// ip link set veth-1-2-1 netns 2
func (l *Linux) CreateVethPair(a, b api.Endpoint) error {
	linkAttr := netlink.NewLinkAttrs()
	linkAttr.Name = a.Name
	linkAttr.MTU = 1500

	veth := &netlink.Veth{
		LinkAttrs: linkAttr,
		PeerName:  b.Name,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		return errors.Wrapf(err, "failed to create veth pair %s/%s", a.Name, b.Name)
	}

	for _, ep := range []api.Endpoint{a, b} {
		if err := l.moveToNode(ep); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linux) moveToNode(ep api.Endpoint) error {
	link, err := netlink.LinkByName(ep.Name)
	if err != nil {
		return errors.Wrapf(err, "failed to get link %s", ep.Name)
	}
	path, err := l.backend.Path(context.Background(), ep.Node)
	if err != nil {
		return err
	}
	nodeNs, err := ns.GetNS(path)
	if err != nil {
		return errors.Wrapf(err, "failed to get namespace for node %s", ep.Node)
	}
	defer nodeNs.Close()

	if err = netlink.LinkSetNsFd(link, int(nodeNs.Fd())); err != nil {
		return errors.Wrapf(err, "failed to move %s to node %s", ep.Name, ep.Node)
	}
	return nil
}

// SetLinkUp : ip -n <node> link set dev <ifname> up
func (l *Linux) SetLinkUp(node, ifname string) error {
	return l.do(node, func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return errors.Wrapf(err, "failed to get link %s", ifname)
		}
		return errors.Wrapf(netlink.LinkSetUp(link), "failed to set %s up", ifname)
	})
}

// DisableOffload : ethtool -K <ifname> tso off gso off
func (l *Linux) DisableOffload(node, ifname string) error {
	return l.do(node, func() error {
		// the ethtool socket belongs to the namespace it is opened in
		et, err := ethtool.NewEthtool()
		if err != nil {
			return errors.Wrap(err, "failed to init ethtool")
		}
		defer et.Close()
		return errors.Wrapf(et.Change(ifname, offloadFeatures), "failed to disable offload on %s", ifname)
	})
}

// AddAddress : ip -n <node> addr add <addr> dev <ifname>
func (l *Linux) AddAddress(node, ifname string, addr *net.IPNet) error {
	return l.do(node, func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return errors.Wrapf(err, "failed to get link %s", ifname)
		}
		nlAddr := &netlink.Addr{IPNet: addr}
		if util.FamilyOf(addr.IP) == unix.AF_INET6 && ifname != "lo" {
			nlAddr.Flags = unix.IFA_F_NODAD
		}
		if err = netlink.AddrAdd(link, nlAddr); err != nil {
			return errors.Wrapf(err, "failed to add %s to %s", addr, ifname)
		}
		return nil
	})
}

// ReplaceRoute : ip -n <node> route replace <dst> via <gw> [dev <ifname>]
func (l *Linux) ReplaceRoute(r api.Route) error {
	return l.do(r.Node, func() error {
		route := &netlink.Route{Dst: r.Dst, Gw: r.Gw}
		if r.Dev != "" {
			link, err := netlink.LinkByName(r.Dev)
			if err != nil {
				return errors.Wrapf(err, "failed to get link %s", r.Dev)
			}
			route.LinkIndex = link.Attrs().Index
		}
		return errors.Wrapf(netlink.RouteReplace(route), "failed to install route %s", r)
	})
}

// ReplaceQdisc : tc qdisc replace dev <ifname> root netem delay 10ms rate 1mbit loss 0%
func (l *Linux) ReplaceQdisc(node, ifname string, s api.Shaping) error {
	return l.do(node, func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return errors.Wrapf(err, "failed to get link %s", ifname)
		}
		netem := netlink.NewNetem(netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(1, 0),
			Parent:    netlink.HANDLE_ROOT,
		}, netemAttrs(s))
		if err := netlink.QdiscReplace(netem); err != nil {
			return errors.Wrapf(err, "failed to add netem qdisc to %s", ifname)
		}
		return nil
	})
}

// netemAttrs converts s to netem units. tc's mbit is 10^6 bit/s.
func netemAttrs(s api.Shaping) netlink.NetemQdiscAttrs {
	return netlink.NetemQdiscAttrs{
		Latency: uint32(s.DelayMs * 1000),            // us
		Loss:    float32(s.LossPercent),              // %
		Rate64:  uint64(s.BandwidthMbit * 1e6 / 8.0), // bytes/s
		Limit:   netemLimit,
	}
}

// StartMulticastDaemon : smcrouted -l debug -I <daemon>
func (l *Linux) StartMulticastDaemon(ctx context.Context, node, daemon string) error {
	return l.do(node, func() error {
		return run(exec.CommandContext(ctx, smcrouted, "-l", "debug", "-I", daemon))
	})
}

// StopMulticastDaemon : smcroutectl -I <daemon> kill
// smcroutectl reaches the daemon through its IPC socket, so it runs from the
// host namespace and works after a failed build.
func (l *Linux) StopMulticastDaemon(ctx context.Context, daemon string) error {
	cmd := exec.CommandContext(ctx, smcroutectl, "-I", daemon, "kill")
	logrus.Debugf("exec: %s", strings.Join(cmd.Args, " "))
	out, err := cmd.CombinedOutput()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, exec.ErrNotFound), daemonNotRunning(string(out)):
		return api.ErrDaemonNotRunning
	default:
		return errors.Wrapf(err, "%s: %s", smcroutectl, strings.TrimSpace(string(out)))
	}
}

// daemonNotRunning reports whether smcroutectl output means there was no
// daemon behind the socket.
func daemonNotRunning(out string) bool {
	out = strings.ToLower(out)
	for _, s := range []string{"not running", "no such file", "connection refused"} {
		if strings.Contains(out, s) {
			return true
		}
	}
	return false
}

// AddMulticastRoute : smcroutectl -I <daemon> add <in> <group> <out...>
func (l *Linux) AddMulticastRoute(ctx context.Context, daemon string, r api.MulticastRule) error {
	args := []string{"-I", daemon, "add", r.In, r.Group.String()}
	args = append(args, r.Out...)
	return l.do(r.Node, func() error {
		return run(exec.CommandContext(ctx, smcroutectl, args...))
	})
}

// Run forks cmd from a thread that sits in node's namespace, so the
// child inherits it.
func (l *Linux) Run(node string, cmd *exec.Cmd, wait bool) error {
	logrus.WithField("node", node).Debugf("exec: %s", strings.Join(cmd.Args, " "))
	if err := l.do(node, cmd.Start); err != nil {
		return err
	}
	if wait {
		return cmd.Wait()
	}
	return nil
}

func run(cmd *exec.Cmd) error {
	logrus.Debugf("exec: %s", strings.Join(cmd.Args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %s", cmd.Args[0], strings.TrimSpace(string(out)))
	}
	return nil
}
