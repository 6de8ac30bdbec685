package topology

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"micronet/api"
)

func TestInterfaceNames(t *testing.T) {
	t.Run("the names do not depend on the argument order", func(t *testing.T) {
		a0, a1 := InterfaceNames("1", "2")
		b0, b1 := InterfaceNames("2", "1")
		if a0 != b0 || a1 != b1 {
			t.Fatalf("asymmetric names: (%s, %s) vs (%s, %s)", a0, a1, b0, b1)
		}
		if a0 != "veth-1-2-0" || a1 != "veth-1-2-1" {
			t.Fatalf("unexpected names %s %s", a0, a1)
		}
	})

	t.Run("each side gets its own endpoint", func(t *testing.T) {
		if got := InterfaceName("1", "2"); got != "veth-1-2-0" {
			t.Fatal("unexpected name", got)
		}
		if got := InterfaceName("2", "1"); got != "veth-1-2-1" {
			t.Fatal("unexpected name", got)
		}
	})

	t.Run("node ids are ordered as strings", func(t *testing.T) {
		// "10" < "9" lexicographically
		if got := InterfaceName("9", "10"); got != "veth-10-9-1" {
			t.Fatal("unexpected name", got)
		}
	})

	t.Run("long names are rejected", func(t *testing.T) {
		name, _ := InterfaceNames("router1", "router2")
		err := CheckName(name)
		if !api.IsConfiguration(err) {
			t.Fatal("expected a configuration error, got", err)
		}
	})
}

func TestAddLink(t *testing.T) {
	topo := New()
	for _, id := range []string{"1", "2", "3"} {
		topo.AddNode(id, "")
	}

	t.Run("a duplicate link in either orientation is ignored", func(t *testing.T) {
		if _, added := topo.AddLink("1", "2"); !added {
			t.Fatal("first link not added")
		}
		if _, added := topo.AddLink("2", "1"); added {
			t.Fatal("reversed duplicate added")
		}
		if _, added := topo.AddLink("1", "2"); added {
			t.Fatal("duplicate added")
		}
		if n := len(topo.Links()); n != 1 {
			t.Fatal("expected one link, got", n)
		}
	})

	t.Run("the adjacency index follows insertion order", func(t *testing.T) {
		topo.AddLink("3", "1")
		if diff := cmp.Diff([]string{"2", "3"}, topo.Neighbors("1")); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{"1"}, topo.Neighbors("3")); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{"veth-1-2-0", "veth-1-3-0"}, topo.Interfaces("1")); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("positional references resolve through the index", func(t *testing.T) {
		nbr, err := topo.Neighbor("1", 1)
		if err != nil {
			t.Fatal(err)
		}
		if nbr != "3" {
			t.Fatal("unexpected neighbor", nbr)
		}
		if _, err := topo.Neighbor("1", 2); !api.IsConfiguration(err) {
			t.Fatal("expected a configuration error, got", err)
		}
		if _, err := topo.Neighbor("1", -1); !api.IsConfiguration(err) {
			t.Fatal("expected a configuration error, got", err)
		}
	})

	t.Run("endpoints come in pairs", func(t *testing.T) {
		expect := []api.Endpoint{
			{Node: "1", Peer: "2", Name: "veth-1-2-0"},
			{Node: "2", Peer: "1", Name: "veth-1-2-1"},
			{Node: "1", Peer: "3", Name: "veth-1-3-0"},
			{Node: "3", Peer: "1", Name: "veth-1-3-1"},
		}
		if diff := cmp.Diff(expect, topo.Endpoints()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("interface ownership", func(t *testing.T) {
		if !topo.OwnsInterface("3", "veth-1-3-1") || !topo.OwnsInterface("3", "lo") {
			t.Fatal("node 3 should own its endpoint and lo")
		}
		if topo.OwnsInterface("3", "veth-1-3-0") {
			t.Fatal("node 3 does not own the peer endpoint")
		}
	})
}

func TestAddNodeIsIdempotent(t *testing.T) {
	topo := New()
	if !topo.AddNode("1", "/var/run/netns/1") {
		t.Fatal("first add should report a new node")
	}
	if topo.AddNode("1", "/var/run/netns/1") {
		t.Fatal("second add should be a no-op")
	}
	if n := len(topo.Nodes()); n != 1 {
		t.Fatal("expected one node, got", n)
	}
}
