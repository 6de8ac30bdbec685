// Package topology holds the in-memory view of an emulated network: the
// tracked nodes, the links between them and the adjacency index used to
// resolve positional interface references.
package topology

import (
	"net"
	"sort"

	"micronet/api"
)

// Topology is the state produced by a build. The zero value is not usable,
// create it with New.
type Topology struct {
	nodes     map[string]*api.Node
	order     []string
	links     []api.Link
	linkSet   map[api.Link]struct{}
	adjacency map[string][]string
	routes    []api.Route
	mcast     []api.MulticastRule
	daemons   map[string]string // node -> multicast daemon name
}

// New returns an empty Topology.
func New() *Topology {
	return &Topology{
		nodes:     make(map[string]*api.Node),
		linkSet:   make(map[api.Link]struct{}),
		adjacency: make(map[string][]string),
		daemons:   make(map[string]string),
	}
}

// AddNode tracks id and reports whether it was new.
func (t *Topology) AddNode(id, netns string) bool {
	if _, ok := t.nodes[id]; ok {
		return false
	}
	t.nodes[id] = &api.Node{ID: id, NetNs: netns}
	t.order = append(t.order, id)
	return true
}

// HasNode reports whether id is tracked.
func (t *Topology) HasNode(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Node returns the tracked node, or nil.
func (t *Topology) Node(id string) *api.Node {
	return t.nodes[id]
}

// Nodes returns the tracked nodes in creation order.
func (t *Topology) Nodes() []api.Node {
	nodes := make([]api.Node, 0, len(t.order))
	for _, id := range t.order {
		nodes = append(nodes, *t.nodes[id])
	}
	return nodes
}

// SetLoopback records addr as the canonical address of id.
func (t *Topology) SetLoopback(id string, addr *net.IPNet) {
	if n, ok := t.nodes[id]; ok {
		n.Loopback = addr
	}
}

func key(a, b string) api.Link {
	lo, hi := Order(a, b)
	return api.Link{A: lo, B: hi}
}

// HasLink reports whether {a, b} exists, in either orientation.
func (t *Topology) HasLink(a, b string) bool {
	_, ok := t.linkSet[key(a, b)]
	return ok
}

// AddLink records {a, b} and appends each node to the other's neighbor
// list. It returns false when the link already exists.
func (t *Topology) AddLink(a, b string) (api.Link, bool) {
	l := key(a, b)
	if _, ok := t.linkSet[l]; ok {
		return l, false
	}
	t.linkSet[l] = struct{}{}
	t.links = append(t.links, l)
	t.adjacency[a] = append(t.adjacency[a], b)
	t.adjacency[b] = append(t.adjacency[b], a)
	return l, true
}

// Links returns the links in the order they were added.
func (t *Topology) Links() []api.Link {
	return append([]api.Link(nil), t.links...)
}

// Neighbors returns the neighbors of id in link declaration order.
func (t *Topology) Neighbors(id string) []string {
	return append([]string(nil), t.adjacency[id]...)
}

// Neighbor resolves a positional interface reference of id.
func (t *Topology) Neighbor(id string, index int) (string, error) {
	nbrs := t.adjacency[id]
	if index < 0 || index >= len(nbrs) {
		return "", api.Configf("node %s has no interface at index %d (%d neighbors)", id, index, len(nbrs))
	}
	return nbrs[index], nil
}

// Interfaces returns the veth names that live in id, in neighbor order.
func (t *Topology) Interfaces(id string) []string {
	var names []string
	for _, nbr := range t.adjacency[id] {
		names = append(names, InterfaceName(id, nbr))
	}
	return names
}

// OwnsInterface reports whether name is lo or one of id's veth endpoints.
func (t *Topology) OwnsInterface(id, name string) bool {
	if name == "lo" {
		return true
	}
	for _, n := range t.Interfaces(id) {
		if n == name {
			return true
		}
	}
	return false
}

// Endpoints returns every link endpoint, two per link.
func (t *Topology) Endpoints() []api.Endpoint {
	eps := make([]api.Endpoint, 0, 2*len(t.links))
	for _, l := range t.links {
		lo, hi := Endpoints(l)
		eps = append(eps, lo, hi)
	}
	return eps
}

// AddRoute records an installed route.
func (t *Topology) AddRoute(r api.Route) {
	t.routes = append(t.routes, r)
}

// Routes returns the installed routes in installation order.
func (t *Topology) Routes() []api.Route {
	return append([]api.Route(nil), t.routes...)
}

// AddMulticastRule records an installed multicast rule.
func (t *Topology) AddMulticastRule(r api.MulticastRule) {
	t.mcast = append(t.mcast, r)
}

// MulticastRules returns the installed multicast rules.
func (t *Topology) MulticastRules() []api.MulticastRule {
	return append([]api.MulticastRule(nil), t.mcast...)
}

// Daemon returns the multicast daemon name of id, if one was started.
func (t *Topology) Daemon(id string) (string, bool) {
	name, ok := t.daemons[id]
	return name, ok
}

// SetDaemon records that a multicast daemon runs for id.
func (t *Topology) SetDaemon(id, name string) {
	t.daemons[id] = name
}

// Daemons returns the nodes running a multicast daemon, sorted.
func (t *Topology) Daemons() []string {
	ids := make([]string, 0, len(t.daemons))
	for id := range t.daemons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
