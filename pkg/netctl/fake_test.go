package netctl

import (
	"context"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"micronet/api"
)

func TestFakeDestroyRemovesPeers(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	for _, id := range []string{"1", "2"} {
		if _, err := f.CreateNamespace(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	a := api.Endpoint{Node: "1", Peer: "2", Name: "veth-1-2-0"}
	b := api.Endpoint{Node: "2", Peer: "1", Name: "veth-1-2-1"}
	if err := f.CreateVethPair(a, b); err != nil {
		t.Fatal(err)
	}
	if err := f.CreateVethPair(a, b); err == nil {
		t.Fatal("duplicate veth names accepted")
	}

	if err := f.DestroyNamespace(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.Namespaces["2"].Interfaces["veth-1-2-1"]; ok {
		t.Fatal("peer survived the namespace deletion")
	}
	if err := f.DestroyNamespace(ctx, "1"); !errors.Is(err, api.ErrNamespaceNotFound) {
		t.Fatal("expected ErrNamespaceNotFound, got", err)
	}
}

func TestFakeNamespaceBusyWithDaemon(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	if _, err := f.CreateNamespace(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if err := f.StartMulticastDaemon(ctx, "1", "smcroute-1"); err != nil {
		t.Fatal(err)
	}
	if err := f.DestroyNamespace(ctx, "1"); err == nil {
		t.Fatal("namespace destroyed with a running daemon")
	}
	if err := f.StopMulticastDaemon(ctx, "smcroute-1"); err != nil {
		t.Fatal(err)
	}
	if err := f.StopMulticastDaemon(ctx, "smcroute-1"); !errors.Is(err, api.ErrDaemonNotRunning) {
		t.Fatal("expected ErrDaemonNotRunning, got", err)
	}
	if err := f.DestroyNamespace(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	// the name is free again
	if _, err := f.CreateNamespace(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if err := f.StartMulticastDaemon(ctx, "1", "smcroute-1"); err != nil {
		t.Fatal(err)
	}
}

func TestFakeOps(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	if _, err := f.CreateNamespace(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	addr := &net.IPNet{IP: net.IPv4(10, 0, 0, 1).To4(), Mask: net.CIDRMask(32, 32)}
	if err := f.AddAddress("1", "lo", addr); err != nil {
		t.Fatal(err)
	}
	if err := f.SetLinkUp("1", "eth0"); err == nil {
		t.Fatal("unknown interface accepted")
	}
	if err := f.AddMulticastRoute(ctx, "smcroute-1", api.MulticastRule{Node: "1", In: "lo"}); err == nil {
		t.Fatal("route accepted without a daemon")
	}

	expect := []string{
		"CreateNamespace 1",
		"AddAddress 1 lo 10.0.0.1/32",
		"SetLinkUp 1 eth0",
		"AddMulticastRoute smcroute-1 lo <nil> ->",
	}
	if diff := cmp.Diff(expect, f.Ops); diff != "" {
		t.Fatal(diff)
	}
	if f.Count("SetLinkUp") != 1 || f.Count("SetLink") != 0 {
		t.Fatal("Count matches op prefixes")
	}
}
