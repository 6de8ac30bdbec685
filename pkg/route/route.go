// Package route assigns loopback and link addresses and installs the static
// unicast routes of a topology.
package route

import (
	"net"

	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/netctl"
	"micronet/pkg/topology"
	"micronet/pkg/util"
)

type RouteManager struct {
	nc     netctl.Controller
	family int
}

func NewRouteManager(nc netctl.Controller, ipv6 bool) *RouteManager {
	return &RouteManager{
		nc:     nc,
		family: util.Family(ipv6),
	}
}

// AssignLoopback adds addr to lo inside id and records it as the node's
// identity address.
func (rm *RouteManager) AssignLoopback(topo *topology.Topology, id, addr string) error {
	if !topo.HasNode(id) {
		return api.Configf("loopback %s: node %s not found", addr, id)
	}
	ipNet, err := util.ParseCIDR(addr, rm.family)
	if err != nil {
		return api.Configf("loopback of node %s: %v", id, err)
	}

	// ip addr add 10.0.0.1/32 dev lo
	if err = rm.nc.AddAddress(id, "lo", ipNet); err != nil {
		return api.EnvError("add "+ipNet.String()+" to lo", id, err)
	}
	topo.SetLoopback(id, ipNet)
	logrus.WithField("node", id).Debugf("loopback %s", ipNet)
	return nil
}

// AssignLinkAddress adds addr to from's endpoint of the {from, to} link.
// A placeholder address (x, - or _) leaves the endpoint unnumbered.
func (rm *RouteManager) AssignLinkAddress(topo *topology.Topology, from, to, addr string) error {
	if !topo.HasLink(from, to) {
		return api.Configf("address %s: no link between %s and %s", addr, from, to)
	}
	if util.IsPlaceholder(addr) {
		logrus.Debugf("no address for %s side of %s-%s", from, from, to)
		return nil
	}
	ipNet, err := util.ParseCIDR(addr, rm.family)
	if err != nil {
		return api.Configf("link address of %s towards %s: %v", from, to, err)
	}

	ifname := topology.InterfaceName(from, to)
	if err = rm.nc.AddAddress(from, ifname, ipNet); err != nil {
		return api.EnvError("add "+ipNet.String()+" to "+ifname, from, err)
	}
	logrus.WithField("node", from).Debugf("%s on %s", ipNet, ifname)
	return nil
}

// AddRoute installs `dst via nextHop` inside id. ref is either the name of
// one of id's interfaces, which pins the route to it, or an address, which
// is informational only. Any other ref is ignored with a warning. An existing
// route to dst is replaced.
func (rm *RouteManager) AddRoute(topo *topology.Topology, id, ref, nextHop, dst string) error {
	if !topo.HasNode(id) {
		return api.Configf("route to %s: node %s not found", dst, id)
	}
	dev := rm.device(topo, id, ref)
	prefix, err := util.ParsePrefix(dst, rm.family)
	if err != nil {
		return api.Configf("route destination of node %s: %v", id, err)
	}
	gw, err := util.ParseIP(nextHop, rm.family)
	if err != nil {
		return api.Configf("next hop of node %s: %v", id, err)
	}

	r := api.Route{Node: id, Dst: prefix, Gw: gw, Dev: dev}
	// ip route replace 10.0.0.2/32 via 10.0.1.2
	if err = rm.nc.ReplaceRoute(r); err != nil {
		return api.EnvError("route "+r.String(), id, err)
	}
	topo.AddRoute(r)
	logrus.WithField("node", id).Debugf("route %s", r)
	return nil
}

// device returns the interface a route is pinned to. A ref naming an
// interface id does not own is logged and ignored: the next hop alone picks
// the device.
func (rm *RouteManager) device(topo *topology.Topology, id, ref string) string {
	if util.IsPlaceholder(ref) || isAddress(ref) {
		return ""
	}
	if !topo.OwnsInterface(id, ref) {
		logrus.WithField("node", id).Warnf("interface %s does not belong to the node, route installed without a device", ref)
		return ""
	}
	return ref
}

func isAddress(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(s)
	return err == nil
}
