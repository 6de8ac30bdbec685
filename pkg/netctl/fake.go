package netctl

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"micronet/api"
)

// FakeInterface is the state of one interface inside a FakeNamespace.
type FakeInterface struct {
	Up              bool
	OffloadDisabled bool
	Peer            string // peer interface name, empty for lo
	Addrs           []string
	Qdisc           *api.Shaping
}

// FakeNamespace is the in-memory state of one node.
type FakeNamespace struct {
	Forwarding map[string]bool // "ipv4", "ipv6"
	Interfaces map[string]*FakeInterface
	Routes     map[string]api.Route // keyed by destination, last write wins
	Daemons    map[string]bool
	MRoutes    []api.MulticastRule
	Commands   [][]string
}

// Fake is an in-memory Controller. It keeps a log of every operation in
// Ops and fails any operation whose name is a key of FailOn.
type Fake struct {
	Namespaces map[string]*FakeNamespace
	Ops        []string
	FailOn     map[string]error

	hostIfaces map[string]bool
	daemons    map[string]string // daemon -> node
}

func NewFake() *Fake {
	return &Fake{
		Namespaces: make(map[string]*FakeNamespace),
		FailOn:     make(map[string]error),
		hostIfaces: make(map[string]bool),
		daemons:    make(map[string]string),
	}
}

var _ Controller = &Fake{}

func (f *Fake) op(name string, args ...string) error {
	f.Ops = append(f.Ops, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if err, ok := f.FailOn[name]; ok {
		return err
	}
	return nil
}

func (f *Fake) ns(node string) (*FakeNamespace, error) {
	n, ok := f.Namespaces[node]
	if !ok {
		return nil, errors.Errorf("no such namespace %s", node)
	}
	return n, nil
}

func (f *Fake) iface(node, ifname string) (*FakeInterface, error) {
	n, err := f.ns(node)
	if err != nil {
		return nil, err
	}
	i, ok := n.Interfaces[ifname]
	if !ok {
		return nil, errors.Errorf("no such device %s in %s", ifname, node)
	}
	return i, nil
}

func (f *Fake) CreateNamespace(_ context.Context, node string) (string, error) {
	if err := f.op("CreateNamespace", node); err != nil {
		return "", err
	}
	if _, ok := f.Namespaces[node]; ok {
		return "", errors.Errorf("namespace %s already exists, run teardown first", node)
	}
	f.Namespaces[node] = &FakeNamespace{
		Forwarding: make(map[string]bool),
		Interfaces: map[string]*FakeInterface{"lo": {}},
		Routes:     make(map[string]api.Route),
		Daemons:    make(map[string]bool),
	}
	return fmt.Sprintf("fake://%s", node), nil
}

func (f *Fake) DestroyNamespace(_ context.Context, node string) error {
	if err := f.op("DestroyNamespace", node); err != nil {
		return err
	}
	n, ok := f.Namespaces[node]
	if !ok {
		return api.ErrNamespaceNotFound
	}
	// a running process keeps the namespace alive
	if len(n.Daemons) > 0 {
		return errors.Errorf("namespace %s is busy: %d multicast daemons still running", node, len(n.Daemons))
	}
	// deleting a namespace deletes the veth pairs with an end inside it
	for name, i := range n.Interfaces {
		delete(f.hostIfaces, name)
		if i.Peer != "" {
			delete(f.hostIfaces, i.Peer)
			for _, other := range f.Namespaces {
				delete(other.Interfaces, i.Peer)
			}
		}
	}
	delete(f.Namespaces, node)
	return nil
}

func (f *Fake) EnableForwarding(node string, ipv6 bool) error {
	if err := f.op("EnableForwarding", node); err != nil {
		return err
	}
	n, err := f.ns(node)
	if err != nil {
		return err
	}
	n.Forwarding["ipv4"] = true
	if ipv6 {
		n.Forwarding["ipv6"] = true
	}
	return nil
}

func (f *Fake) CreateVethPair(a, b api.Endpoint) error {
	if err := f.op("CreateVethPair", a.Name, b.Name); err != nil {
		return err
	}
	if f.hostIfaces[a.Name] || f.hostIfaces[b.Name] {
		return errors.Errorf("file exists: %s/%s", a.Name, b.Name)
	}
	na, err := f.ns(a.Node)
	if err != nil {
		return err
	}
	nb, err := f.ns(b.Node)
	if err != nil {
		return err
	}
	f.hostIfaces[a.Name] = true
	f.hostIfaces[b.Name] = true
	na.Interfaces[a.Name] = &FakeInterface{Peer: b.Name}
	nb.Interfaces[b.Name] = &FakeInterface{Peer: a.Name}
	return nil
}

func (f *Fake) SetLinkUp(node, ifname string) error {
	if err := f.op("SetLinkUp", node, ifname); err != nil {
		return err
	}
	i, err := f.iface(node, ifname)
	if err != nil {
		return err
	}
	i.Up = true
	return nil
}

func (f *Fake) DisableOffload(node, ifname string) error {
	if err := f.op("DisableOffload", node, ifname); err != nil {
		return err
	}
	i, err := f.iface(node, ifname)
	if err != nil {
		return err
	}
	i.OffloadDisabled = true
	return nil
}

func (f *Fake) AddAddress(node, ifname string, addr *net.IPNet) error {
	if err := f.op("AddAddress", node, ifname, addr.String()); err != nil {
		return err
	}
	i, err := f.iface(node, ifname)
	if err != nil {
		return err
	}
	for _, a := range i.Addrs {
		if a == addr.String() {
			return errors.Errorf("file exists: %s on %s", addr, ifname)
		}
	}
	i.Addrs = append(i.Addrs, addr.String())
	return nil
}

func (f *Fake) ReplaceRoute(r api.Route) error {
	if err := f.op("ReplaceRoute", r.Node, r.String()); err != nil {
		return err
	}
	n, err := f.ns(r.Node)
	if err != nil {
		return err
	}
	if r.Dev != "" {
		if _, err := f.iface(r.Node, r.Dev); err != nil {
			return err
		}
	}
	n.Routes[r.Dst.String()] = r
	return nil
}

func (f *Fake) ReplaceQdisc(node, ifname string, s api.Shaping) error {
	if err := f.op("ReplaceQdisc", node, ifname); err != nil {
		return err
	}
	i, err := f.iface(node, ifname)
	if err != nil {
		return err
	}
	shaping := s
	i.Qdisc = &shaping
	return nil
}

func (f *Fake) StartMulticastDaemon(_ context.Context, node, daemon string) error {
	if err := f.op("StartMulticastDaemon", node, daemon); err != nil {
		return err
	}
	n, err := f.ns(node)
	if err != nil {
		return err
	}
	if _, ok := f.daemons[daemon]; ok {
		return errors.Errorf("%s is already running", daemon)
	}
	f.daemons[daemon] = node
	n.Daemons[daemon] = true
	return nil
}

func (f *Fake) StopMulticastDaemon(_ context.Context, daemon string) error {
	if err := f.op("StopMulticastDaemon", daemon); err != nil {
		return err
	}
	node, ok := f.daemons[daemon]
	if !ok {
		return api.ErrDaemonNotRunning
	}
	delete(f.daemons, daemon)
	if n, ok := f.Namespaces[node]; ok {
		delete(n.Daemons, daemon)
	}
	return nil
}

func (f *Fake) AddMulticastRoute(_ context.Context, daemon string, r api.MulticastRule) error {
	if err := f.op("AddMulticastRoute", daemon, r.String()); err != nil {
		return err
	}
	node, ok := f.daemons[daemon]
	if !ok {
		return errors.Errorf("cannot connect to %s", daemon)
	}
	n, err := f.ns(node)
	if err != nil {
		return err
	}
	for _, ifname := range append([]string{r.In}, r.Out...) {
		if _, err := f.iface(node, ifname); err != nil {
			return err
		}
	}
	n.MRoutes = append(n.MRoutes, r)
	return nil
}

// Run records the command without running it.
func (f *Fake) Run(node string, cmd *exec.Cmd, wait bool) error {
	if err := f.op("Run", node, strings.Join(cmd.Args, " ")); err != nil {
		return err
	}
	n, err := f.ns(node)
	if err != nil {
		return err
	}
	n.Commands = append(n.Commands, cmd.Args)
	return nil
}

// NamespaceNames returns the existing namespaces, sorted.
func (f *Fake) NamespaceNames() []string {
	names := make([]string, 0, len(f.Namespaces))
	for name := range f.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns how many times op was called.
func (f *Fake) Count(op string) int {
	n := 0
	for _, o := range f.Ops {
		if o == op || strings.HasPrefix(o, op+" ") {
			n++
		}
	}
	return n
}
