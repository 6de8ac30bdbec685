package netctl

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/vishvananda/netns"
)

// stubNetns replaces the namespace switching calls for the duration of t.
func stubNetns(t *testing.T, create, restore error) *[]string {
	t.Helper()
	calls := []string{}
	oldGet, oldSet, oldNew := getNs, setNs, newNamed
	t.Cleanup(func() { getNs, setNs, newNamed = oldGet, oldSet, oldNew })

	getNs = func() (netns.NsHandle, error) {
		calls = append(calls, "get")
		return netns.None(), nil
	}
	newNamed = func(name string) (netns.NsHandle, error) {
		calls = append(calls, "new "+name)
		return netns.None(), create
	}
	setNs = func(netns.NsHandle) error {
		calls = append(calls, "set")
		return restore
	}
	return &calls
}

func TestNamespaceCreate(t *testing.T) {
	ctx := context.Background()
	b := &NamespaceBackend{}

	t.Run("origin is restored", func(t *testing.T) {
		calls := stubNetns(t, nil, nil)
		path, err := b.Create(ctx, "micronet-test-ok")
		if err != nil {
			t.Fatal(err)
		}
		if path != "/var/run/netns/micronet-test-ok" {
			t.Fatal("unexpected path", path)
		}
		if strings.Join(*calls, ",") != "get,new micronet-test-ok,set" {
			t.Fatal("unexpected calls", *calls)
		}
	})

	t.Run("origin is restored after a failed create", func(t *testing.T) {
		calls := stubNetns(t, errors.New("operation not permitted"), nil)
		_, err := b.Create(ctx, "micronet-test-eperm")
		if err == nil || !strings.Contains(err.Error(), "create netns micronet-test-eperm") {
			t.Fatal("expected the create error, got", err)
		}
		if (*calls)[len(*calls)-1] != "set" {
			t.Fatal("origin not restored", *calls)
		}
	})

	t.Run("a failed restore is returned", func(t *testing.T) {
		stubNetns(t, nil, errors.New("bad file descriptor"))
		_, err := b.Create(ctx, "micronet-test-restore")
		if err == nil || !strings.Contains(err.Error(), "restore netns") {
			t.Fatal("expected the restore error, got", err)
		}
		if !strings.Contains(err.Error(), "bad file descriptor") {
			t.Fatal("cause lost", err)
		}
	})
}
