// Package netctl is the narrow interface between the topology builder and
// the host networking stack.
//
// Linux implements it with netlink, ethtool and smcroute. Fake keeps every
// operation in memory so the builder logic can be tested without root.
package netctl

import (
	"context"
	"net"
	"os/exec"

	"micronet/api"
)

// Controller performs the primitive operations a build is made of. Every
// node-scoped call runs inside that node's network namespace.
type Controller interface {
	// CreateNamespace creates the isolated network context of node and
	// returns its path.
	CreateNamespace(ctx context.Context, node string) (string, error)
	// DestroyNamespace removes it. It returns api.ErrNamespaceNotFound
	// when there is nothing to remove.
	DestroyNamespace(ctx context.Context, node string) error
	// EnableForwarding sets the IP forwarding sysctls inside node.
	EnableForwarding(node string, ipv6 bool) error

	// CreateVethPair creates a veth pair and moves each end into its namespace.
	CreateVethPair(a, b api.Endpoint) error
	SetLinkUp(node, ifname string) error
	// DisableOffload turns TSO and GSO off on ifname.
	DisableOffload(node, ifname string) error

	AddAddress(node, ifname string, addr *net.IPNet) error
	// ReplaceRoute installs r, replacing any route to the same destination.
	ReplaceRoute(r api.Route) error
	// ReplaceQdisc installs a root netem qdisc on ifname.
	ReplaceQdisc(node, ifname string, s api.Shaping) error

	StartMulticastDaemon(ctx context.Context, node, daemon string) error
	// StopMulticastDaemon kills daemon. It returns api.ErrDaemonNotRunning
	// when there is nothing to stop.
	StopMulticastDaemon(ctx context.Context, daemon string) error
	AddMulticastRoute(ctx context.Context, daemon string, r api.MulticastRule) error

	// Run launches cmd inside node and waits for it when wait is set.
	Run(node string, cmd *exec.Cmd, wait bool) error
}
