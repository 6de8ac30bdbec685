package api

import (
	"fmt"
	"net"
	"strings"
)

// Route is a static unicast route installed inside Node's namespace.
type Route struct {
	Node string
	Dst  *net.IPNet
	Gw   net.IP
	Dev  string // optional, pins the route to an interface
}

func (r Route) String() string {
	s := fmt.Sprintf("%s via %s", r.Dst, r.Gw)
	if r.Dev != "" {
		s += " dev " + r.Dev
	}
	return s
}

// PathEntry is one line of the paths descriptor:
// `nodeId interfaceOrAddrRef nextHop destination`.
type PathEntry struct {
	Node        string
	Ref         string
	NextHop     string
	Destination string
	Line        int
}

// MulticastEntry is one line of the multicast descriptor:
// `nodeId inIndex group outIndex...`. Indexes point into the node's
// neighbor list, in link declaration order.
type MulticastEntry struct {
	Node  string
	In    int
	Group string
	Out   []int
	Line  int
}

// MulticastRule is a resolved multicast forwarding rule for one node.
type MulticastRule struct {
	Node  string
	In    string
	Group net.IP
	Out   []string
}

func (r MulticastRule) String() string {
	return fmt.Sprintf("%s %s -> %s", r.In, r.Group, strings.Join(r.Out, " "))
}

// Descriptors holds the four parsed descriptor sources.
type Descriptors struct {
	Loopbacks []LoopbackEntry
	Links     []LinkEntry
	Paths     []PathEntry
	Multicast []MulticastEntry // optional
}
