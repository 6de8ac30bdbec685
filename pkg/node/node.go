package node

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/mcast"
	"micronet/pkg/netctl"
	"micronet/pkg/topology"
)

// NodeManager manages the lifecycle of node namespaces
type NodeManager struct {
	nc   netctl.Controller
	ipv6 bool
}

func NewNodeManager(nc netctl.Controller, ipv6 bool) *NodeManager {
	return &NodeManager{
		nc:   nc,
		ipv6: ipv6,
	}
}

// CreateNode creates the namespace of id and enables forwarding inside it.
// It is a no-op when topo already tracks id.
func (nm *NodeManager) CreateNode(ctx context.Context, topo *topology.Topology, id string) error {
	if topo.HasNode(id) {
		logrus.Debugf("node %s already exists", id)
		return nil
	}

	path, err := nm.nc.CreateNamespace(ctx, id)
	if err != nil {
		return api.EnvError("create namespace", id, err)
	}
	if err = nm.nc.EnableForwarding(id, nm.ipv6); err != nil {
		return api.EnvError("enable forwarding", id, err)
	}
	topo.AddNode(id, path)
	logrus.WithField("node", id).Infof("namespace created at %s", path)
	return nil
}

// DestroyAll stops the multicast daemon of every id, then removes its
// namespace. It works from the ids alone so that it can run in a process
// that did not build the topology. Missing namespaces are reported as
// warnings.
func (nm *NodeManager) DestroyAll(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := nm.stopDaemon(ctx, id); err != nil {
			return err
		}
		err := nm.nc.DestroyNamespace(ctx, id)
		switch {
		case errors.Is(err, api.ErrNamespaceNotFound):
			logrus.WithField("node", id).Warn("namespace does not exist, skipping")
		case err != nil:
			return api.EnvError("destroy namespace", id, err)
		default:
			logrus.WithField("node", id).Info("namespace removed")
		}
	}
	return nil
}

// stopDaemon kills smcroute-<id>. A daemon keeps its namespace alive, so it
// has to go first.
func (nm *NodeManager) stopDaemon(ctx context.Context, id string) error {
	daemon := mcast.DaemonName(id)
	err := nm.nc.StopMulticastDaemon(ctx, daemon)
	switch {
	case errors.Is(err, api.ErrDaemonNotRunning):
		logrus.WithField("node", id).Debugf("%s is not running", daemon)
		return nil
	case err != nil:
		return api.EnvError("stop "+daemon, id, err)
	}
	logrus.WithField("node", id).Infof("%s stopped", daemon)
	return nil
}
