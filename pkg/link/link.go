package link

import (
	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/netctl"
	"micronet/pkg/topology"
)

// LinkManager wires veth pairs between tracked nodes and shapes them.
type LinkManager struct {
	nc netctl.Controller
}

func NewLinkManager(nc netctl.Controller) *LinkManager {
	return &LinkManager{
		nc: nc,
	}
}

// AddLink connects a and b with a veth pair. It returns false without
// touching the host when the link already exists in either orientation.
func (lm *LinkManager) AddLink(topo *topology.Topology, a, b string) (bool, error) {
	// check invalid link
	if !topo.HasNode(a) {
		return false, api.Configf("link %s-%s: node %s not found", a, b, a)
	}
	if !topo.HasNode(b) {
		return false, api.Configf("link %s-%s: node %s not found", a, b, b)
	}
	if a == b {
		return false, api.Configf("link %s-%s: a node cannot be linked to itself", a, b)
	}

	// check if existed
	if topo.HasLink(a, b) {
		logrus.Debugf("link %s-%s already exists, skipping", a, b)
		return false, nil
	}

	lo, hi := topology.Endpoints(api.Link{A: a, B: b})
	for _, ep := range []api.Endpoint{lo, hi} {
		if err := topology.CheckName(ep.Name); err != nil {
			return false, err
		}
	}

	// ip link add veth-1-2-0 type veth peer name veth-1-2-1
	if err := lm.nc.CreateVethPair(lo, hi); err != nil {
		return false, api.EnvError("create veth "+lo.Name, lo.Node, err)
	}
	for _, ep := range []api.Endpoint{lo, hi} {
		if err := lm.setup(ep); err != nil {
			return false, err
		}
	}

	l, _ := topo.AddLink(a, b)
	logrus.Infof("link %s created (%s, %s)", l, lo.Name, hi.Name)
	return true, nil
}

// setup brings lo and the endpoint up and turns segmentation offload off.
func (lm *LinkManager) setup(ep api.Endpoint) error {
	for _, ifname := range []string{"lo", ep.Name} {
		if err := lm.nc.SetLinkUp(ep.Node, ifname); err != nil {
			return api.EnvError("set "+ifname+" up", ep.Node, err)
		}
	}
	// ethtool -K veth-1-2-0 tso off gso off
	if err := lm.nc.DisableOffload(ep.Node, ep.Name); err != nil {
		return api.EnvError("disable offload on "+ep.Name, ep.Node, err)
	}
	return nil
}
