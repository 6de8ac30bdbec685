package api

import "fmt"

// Link is a point-to-point veth link. A is always the lower node id.
type Link struct {
	A string
	B string
}

// Endpoint is one side of a Link, realized inside Node's namespace.
type Endpoint struct {
	Node string
	Peer string
	Name string // veth-{lo}-{hi}-{side}
}

func (l Link) String() string {
	return fmt.Sprintf("%s<->%s", l.A, l.B)
}

// LinkEntry is one line of the links descriptor:
// `nodeA nodeB <reserved> <linkAddress> <reserved>`.
// The address is the one of nodeA's side of the link.
type LinkEntry struct {
	From    string
	To      string
	Address string
	Line    int
}

// Shaping is the uniform netem profile applied to every link endpoint.
type Shaping struct {
	BandwidthMbit float64 `yaml:"bandwidth"` // rate 10mbit
	DelayMs       float64 `yaml:"delay"`     // delay 20ms
	LossPercent   float64 `yaml:"loss"`      // loss 1%
}
