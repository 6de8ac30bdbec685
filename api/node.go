package api

import "net"

// Node is one emulated host. Each node lives in its own network namespace
// named after ID.
type Node struct {
	ID       string
	Loopback *net.IPNet // nil until the loopback descriptor has been applied
	NetNs    string     // namespace path, filled by the isolation backend
}

// LoopbackEntry is one line of the loopback descriptor: `nodeId loopbackAddress`.
type LoopbackEntry struct {
	Node    string
	Address string
	Line    int
}

// NodeIDs returns the node ids of the loopback descriptor in file order.
func NodeIDs(entries []LoopbackEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Node)
	}
	return ids
}
