package pkg

import (
	"context"
	"os/exec"

	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/link"
	"micronet/pkg/mcast"
	"micronet/pkg/netctl"
	"micronet/pkg/node"
	"micronet/pkg/route"
	"micronet/pkg/topology"
)

// Manager drives the build and the teardown of a topology. It keeps no
// topology state of its own: Build returns it to the caller.
type Manager struct {
	nm *node.NodeManager
	lm *link.LinkManager
	rm *route.RouteManager
	mm *mcast.MulticastManager
}

// NewManager creates a Manager that performs every host operation through nc.
func NewManager(nc netctl.Controller, ipv6 bool) *Manager {
	return &Manager{
		nm: node.NewNodeManager(nc, ipv6),
		lm: link.NewLinkManager(nc),
		rm: route.NewRouteManager(nc, ipv6),
		mm: mcast.NewMulticastManager(nc),
	}
}

// Run executes every build stage and returns the last one, from which the
// topology can be shaped. The first error aborts the build and leaves the
// host as it is; run Teardown to clean up.
func (m *Manager) Run(ctx context.Context, desc *api.Descriptors) (*Built, error) {
	namespaced, err := m.CreateNodes(ctx, desc)
	if err != nil {
		return nil, err
	}
	linked, err := namespaced.AddLinks(ctx)
	if err != nil {
		return nil, err
	}
	addressed, err := linked.AssignAddresses(ctx)
	if err != nil {
		return nil, err
	}
	routed, err := addressed.InstallRoutes(ctx)
	if err != nil {
		return nil, err
	}
	built, err := routed.InstallMulticast(ctx)
	if err != nil {
		return nil, err
	}
	topo := built.Topology()
	logrus.Infof("topology ready: %d nodes, %d links, %d routes, %d multicast rules",
		len(topo.Nodes()), len(topo.Links()), len(topo.Routes()), len(topo.MulticastRules()))
	return built, nil
}

// Build creates the topology described by desc, without shaping.
func (m *Manager) Build(ctx context.Context, desc *api.Descriptors) (*topology.Topology, error) {
	built, err := m.Run(ctx, desc)
	if err != nil {
		return nil, err
	}
	return built.Topology(), nil
}

// Teardown removes the namespace of every node of the loopback descriptor.
// It needs no Topology, so it also cleans up after a failed build or
// another process.
func (m *Manager) Teardown(ctx context.Context, loopbacks []api.LoopbackEntry) error {
	logrus.Infof("removing %d namespaces", len(loopbacks))
	return m.nm.DestroyAll(ctx, api.NodeIDs(loopbacks))
}

// Exec starts argv inside node id.
func (m *Manager) Exec(ctx context.Context, id string, argv []string, opts node.ExecOptions) (*exec.Cmd, error) {
	return m.nm.Exec(ctx, id, argv, opts)
}
