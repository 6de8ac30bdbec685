package route

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"micronet/api"
	"micronet/pkg/link"
	"micronet/pkg/netctl"
	"micronet/pkg/topology"
)

// linked returns a topology of the given nodes with a link between every
// consecutive pair.
func linked(t *testing.T, ids ...string) (*netctl.Fake, *topology.Topology) {
	t.Helper()
	fake := netctl.NewFake()
	topo := topology.New()
	for _, id := range ids {
		path, err := fake.CreateNamespace(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		topo.AddNode(id, path)
	}
	lm := link.NewLinkManager(fake)
	for i := 1; i < len(ids); i++ {
		if _, err := lm.AddLink(topo, ids[i-1], ids[i]); err != nil {
			t.Fatal(err)
		}
	}
	return fake, topo
}

func TestAssignLoopback(t *testing.T) {
	fake, topo := linked(t, "1", "2")
	rm := NewRouteManager(fake, false)

	if err := rm.AssignLoopback(topo, "1", "10.0.0.1/32"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"10.0.0.1/32"}, fake.Namespaces["1"].Interfaces["lo"].Addrs); diff != "" {
		t.Fatal(diff)
	}
	if got := topo.Node("1").Loopback.String(); got != "10.0.0.1/32" {
		t.Fatal("loopback not recorded", got)
	}

	tests := []struct {
		name string
		id   string
		addr string
	}{
		{name: "unknown node", id: "9", addr: "10.0.0.9/32"},
		{name: "garbage", id: "2", addr: "10.0.0/32"},
		{name: "wrong family", id: "2", addr: "fd00::2/128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := rm.AssignLoopback(topo, tt.id, tt.addr); !api.IsConfiguration(err) {
				t.Fatal("expected a configuration error, got", err)
			}
		})
	}

	t.Run("ipv6 build", func(t *testing.T) {
		fake, topo := linked(t, "1")
		rm := NewRouteManager(fake, true)
		if err := rm.AssignLoopback(topo, "1", "fd00::1/128"); err != nil {
			t.Fatal(err)
		}
		if err := rm.AssignLoopback(topo, "1", "10.0.0.1/32"); !api.IsConfiguration(err) {
			t.Fatal("ipv4 address accepted in an ipv6 build")
		}
	})
}

func TestAssignLinkAddress(t *testing.T) {
	fake, topo := linked(t, "1", "2")
	rm := NewRouteManager(fake, false)

	if err := rm.AssignLinkAddress(topo, "2", "1", "10.0.1.2/24"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"10.0.1.2/24"}, fake.Namespaces["2"].Interfaces["veth-1-2-1"].Addrs); diff != "" {
		t.Fatal(diff)
	}

	t.Run("placeholders leave the endpoint unnumbered", func(t *testing.T) {
		for _, p := range []string{"x", "-", "_"} {
			if err := rm.AssignLinkAddress(topo, "1", "2", p); err != nil {
				t.Fatal(err)
			}
		}
		if n := len(fake.Namespaces["1"].Interfaces["veth-1-2-0"].Addrs); n != 0 {
			t.Fatal("placeholder assigned an address")
		}
	})

	t.Run("missing link", func(t *testing.T) {
		if err := rm.AssignLinkAddress(topo, "1", "3", "10.0.1.1/24"); !api.IsConfiguration(err) {
			t.Fatal("expected a configuration error, got", err)
		}
	})

	t.Run("duplicate address is an environment error", func(t *testing.T) {
		err := rm.AssignLinkAddress(topo, "2", "1", "10.0.1.2/24")
		if !api.IsEnvironment(err) {
			t.Fatal("expected an environment error, got", err)
		}
	})
}

func TestAddRoute(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		ref     string
		nextHop string
		dst     string
		expect  string
	}{
		{
			name: "interface reference", id: "1", ref: "veth-1-2-0",
			nextHop: "10.0.1.2", dst: "10.0.0.2/32",
			expect: "10.0.0.2/32 via 10.0.1.2 dev veth-1-2-0",
		},
		{
			name: "address reference", id: "1", ref: "10.0.1.1",
			nextHop: "10.0.1.2", dst: "10.0.0.3/32",
			expect: "10.0.0.3/32 via 10.0.1.2",
		},
		{
			name: "host bits are masked", id: "3", ref: "veth-2-3-1",
			nextHop: "10.0.2.2", dst: "10.0.0.77/24",
			expect: "10.0.0.0/24 via 10.0.2.2 dev veth-2-3-1",
		},
		{
			name: "bare destination", id: "3", ref: "lo",
			nextHop: "10.0.2.2", dst: "10.0.0.1",
			expect: "10.0.0.1/32 via 10.0.2.2 dev lo",
		},
		{
			name: "foreign interface is dropped", id: "1", ref: "veth-2-3-0",
			nextHop: "10.0.1.2", dst: "10.0.0.2/32",
			expect: "10.0.0.2/32 via 10.0.1.2",
		},
		{
			name: "unknown interface is dropped", id: "1", ref: "eth0",
			nextHop: "10.0.1.2", dst: "10.0.0.2/32",
			expect: "10.0.0.2/32 via 10.0.1.2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, topo := linked(t, "1", "2", "3")
			rm := NewRouteManager(fake, false)
			if err := rm.AddRoute(topo, tt.id, tt.ref, tt.nextHop, tt.dst); err != nil {
				t.Fatal(err)
			}
			routes := topo.Routes()
			if len(routes) != 1 {
				t.Fatal("expected one route, got", routes)
			}
			if got := routes[0].String(); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
			if _, ok := fake.Namespaces[tt.id].Routes[routes[0].Dst.String()]; !ok {
				t.Fatal("route not installed in", tt.id)
			}
		})
	}

	t.Run("last write wins", func(t *testing.T) {
		fake, topo := linked(t, "1", "2", "3")
		rm := NewRouteManager(fake, false)
		for _, gw := range []string{"10.0.1.2", "10.0.1.3"} {
			if err := rm.AddRoute(topo, "1", "x", gw, "10.0.0.3/32"); err != nil {
				t.Fatal(err)
			}
		}
		got := fake.Namespaces["1"].Routes["10.0.0.3/32"]
		if got.Gw.String() != "10.0.1.3" {
			t.Fatal("expected the second route to win, got", got)
		}
		if n := len(fake.Namespaces["1"].Routes); n != 1 {
			t.Fatal("duplicate destinations coexist", n)
		}
	})

	invalid := []struct {
		name    string
		id      string
		ref     string
		nextHop string
		dst     string
	}{
		{name: "unknown node", id: "9", ref: "x", nextHop: "10.0.1.2", dst: "10.0.0.2/32"},
		{name: "bad next hop", id: "1", ref: "x", nextHop: "10.0.1", dst: "10.0.0.2/32"},
		{name: "bad destination", id: "1", ref: "x", nextHop: "10.0.1.2", dst: "10.0.0.2/33"},
		{name: "family mismatch", id: "1", ref: "x", nextHop: "fd00::2", dst: "10.0.0.2/32"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			fake, topo := linked(t, "1", "2", "3")
			err := NewRouteManager(fake, false).AddRoute(topo, tt.id, tt.ref, tt.nextHop, tt.dst)
			if !api.IsConfiguration(err) {
				t.Fatal("expected a configuration error, got", err)
			}
			if fake.Count("ReplaceRoute") != 0 {
				t.Fatal("rejected route reached the host")
			}
		})
	}

	t.Run("host failure", func(t *testing.T) {
		fake, topo := linked(t, "1", "2")
		fake.FailOn["ReplaceRoute"] = errors.New("network is unreachable")
		err := NewRouteManager(fake, false).AddRoute(topo, "1", "x", "10.0.1.2", "10.0.0.2/32")
		if !api.IsEnvironment(err) {
			t.Fatal("expected an environment error, got", err)
		}
		if len(topo.Routes()) != 0 {
			t.Fatal("failed route recorded")
		}
	})
}
