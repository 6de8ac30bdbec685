package pkg

import (
	"context"

	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/descriptor"
	"micronet/pkg/topology"
)

// The build runs as a chain of stages. Each stage can only be obtained from
// the previous one, so namespaces always come before links, links before
// addresses, addresses before routes and routes before multicast. A
// cancelled context stops the build before the next stage.

type stage struct {
	m    *Manager
	desc *api.Descriptors
	topo *topology.Topology
}

// Topology returns the state built so far.
func (s stage) Topology() *topology.Topology { return s.topo }

// Namespaced has one namespace per loopback entry.
type Namespaced struct{ stage }

// Linked has every veth pair of the links descriptor.
type Linked struct{ stage }

// Addressed has loopback and link addresses.
type Addressed struct{ stage }

// Routed has every static route of the paths descriptor.
type Routed struct{ stage }

// Built is a complete topology. Shaping is optional.
type Built struct{ stage }

// CreateNodes creates the namespace of every node of the loopback descriptor.
func (m *Manager) CreateNodes(ctx context.Context, desc *api.Descriptors) (*Namespaced, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logrus.Info("creating namespaces")
	topo := topology.New()
	for _, e := range desc.Loopbacks {
		if err := m.nm.CreateNode(ctx, topo, e.Node); err != nil {
			return nil, atLine(err, descriptor.SourceLoopbacks, e.Line)
		}
	}
	return &Namespaced{stage{m: m, desc: desc, topo: topo}}, nil
}

// AddLinks creates the veth pairs in descriptor order. Repeated links are
// skipped.
func (s *Namespaced) AddLinks(ctx context.Context) (*Linked, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logrus.Info("adding links")
	for _, e := range s.desc.Links {
		if _, err := s.m.lm.AddLink(s.topo, e.From, e.To); err != nil {
			return nil, atLine(err, descriptor.SourceLinks, e.Line)
		}
	}
	return &Linked{s.stage}, nil
}

// AssignAddresses assigns loopback addresses, then link addresses.
func (s *Linked) AssignAddresses(ctx context.Context) (*Addressed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logrus.Info("adding loopbacks")
	for _, e := range s.desc.Loopbacks {
		if err := s.m.rm.AssignLoopback(s.topo, e.Node, e.Address); err != nil {
			return nil, atLine(err, descriptor.SourceLoopbacks, e.Line)
		}
	}
	logrus.Info("adding link addresses")
	for _, e := range s.desc.Links {
		if err := s.m.rm.AssignLinkAddress(s.topo, e.From, e.To, e.Address); err != nil {
			return nil, atLine(err, descriptor.SourceLinks, e.Line)
		}
	}
	return &Addressed{s.stage}, nil
}

// InstallRoutes replays the paths descriptor in order.
func (s *Addressed) InstallRoutes(ctx context.Context) (*Routed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logrus.Info("adding paths")
	for _, e := range s.desc.Paths {
		if err := s.m.rm.AddRoute(s.topo, e.Node, e.Ref, e.NextHop, e.Destination); err != nil {
			return nil, atLine(err, descriptor.SourcePaths, e.Line)
		}
	}
	return &Routed{s.stage}, nil
}

// InstallMulticast installs the multicast rules, if any.
func (s *Routed) InstallMulticast(ctx context.Context) (*Built, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.desc.Multicast) > 0 {
		logrus.Info("adding multicast paths")
		if err := s.m.mm.Install(ctx, s.topo, s.desc.Multicast); err != nil {
			return nil, err
		}
	}
	return &Built{s.stage}, nil
}

// Shape applies the same netem profile to every link endpoint.
func (b *Built) Shape(sh api.Shaping) error {
	logrus.Info("shaping links")
	return b.m.lm.ApplyShaping(b.topo, sh)
}

// atLine attaches a descriptor position to configuration errors raised by
// the builders, which only know about node ids.
func atLine(err error, source string, line int) error {
	if ce, ok := err.(*api.ConfigurationError); ok && ce.Source == "" && line > 0 {
		return &api.ConfigurationError{Source: source, Line: line, Msg: ce.Msg}
	}
	return err
}
