// Package mcast installs per-node multicast forwarding rules through one
// smcroute daemon per node.
package mcast

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/descriptor"
	"micronet/pkg/netctl"
	"micronet/pkg/topology"
	"micronet/pkg/util"
)

// DaemonPrefix is prepended to the node id to name its smcroute instance.
const DaemonPrefix = "smcroute-"

// DaemonName returns the smcroute instance name of node id.
func DaemonName(id string) string {
	return DaemonPrefix + id
}

type MulticastManager struct {
	nc netctl.Controller
}

func NewMulticastManager(nc netctl.Controller) *MulticastManager {
	return &MulticastManager{
		nc: nc,
	}
}

// Install replays the multicast descriptor in order. The first failing
// entry stops the installation.
func (mm *MulticastManager) Install(ctx context.Context, topo *topology.Topology, entries []api.MulticastEntry) error {
	for _, e := range entries {
		if err := mm.InstallEntry(ctx, topo, e); err != nil {
			return err
		}
	}
	return nil
}

// InstallEntry resolves the positional interface indexes of e against the
// adjacency of e.Node and adds one forwarding rule. Nothing is installed
// unless every index resolves.
func (mm *MulticastManager) InstallEntry(ctx context.Context, topo *topology.Topology, e api.MulticastEntry) error {
	rule, err := Resolve(topo, e)
	if err != nil {
		return err
	}

	daemon, err := mm.ensureDaemon(ctx, topo, e.Node)
	if err != nil {
		return err
	}
	// smcroutectl -I smcroute-1 add veth-1-2-0 239.1.1.1 veth-1-3-0 veth-1-4-0
	if err = mm.nc.AddMulticastRoute(ctx, daemon, rule); err != nil {
		return api.EnvError("multicast route "+rule.String(), e.Node, err)
	}
	topo.AddMulticastRule(rule)
	logrus.WithField("node", e.Node).Debugf("multicast %s", rule)
	return nil
}

// Resolve turns e into a rule with interface names, without side effects.
func Resolve(topo *topology.Topology, e api.MulticastEntry) (api.MulticastRule, error) {
	if !topo.HasNode(e.Node) {
		return api.MulticastRule{}, entryError(e, "node %s not found", e.Node)
	}
	group, err := util.GroupAddress(e.Group)
	if err != nil {
		return api.MulticastRule{}, entryError(e, "%v", err)
	}

	in, err := resolveIndex(topo, e, e.In)
	if err != nil {
		return api.MulticastRule{}, err
	}
	out := make([]string, 0, len(e.Out))
	for _, idx := range e.Out {
		ifname, err := resolveIndex(topo, e, idx)
		if err != nil {
			return api.MulticastRule{}, err
		}
		out = append(out, ifname)
	}
	return api.MulticastRule{Node: e.Node, In: in, Group: group, Out: out}, nil
}

func resolveIndex(topo *topology.Topology, e api.MulticastEntry, idx int) (string, error) {
	nbr, err := topo.Neighbor(e.Node, idx)
	if err != nil {
		return "", entryError(e, "node %s has no interface at index %d (%d neighbors)",
			e.Node, idx, len(topo.Neighbors(e.Node)))
	}
	return topology.InterfaceName(e.Node, nbr), nil
}

// ensureDaemon starts the daemon of id unless one already runs.
func (mm *MulticastManager) ensureDaemon(ctx context.Context, topo *topology.Topology, id string) (string, error) {
	if name, ok := topo.Daemon(id); ok {
		return name, nil
	}
	name := DaemonName(id)
	// smcrouted -l debug -I smcroute-1
	if err := mm.nc.StartMulticastDaemon(ctx, id, name); err != nil {
		return "", api.EnvError("start "+name, id, err)
	}
	topo.SetDaemon(id, name)
	logrus.WithField("node", id).Infof("%s started", name)
	return name, nil
}

func entryError(e api.MulticastEntry, format string, args ...interface{}) error {
	ce := &api.ConfigurationError{Line: e.Line, Msg: fmt.Sprintf(format, args...)}
	if e.Line > 0 {
		ce.Source = descriptor.SourceMulticast
	}
	return ce
}
