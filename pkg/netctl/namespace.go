package netctl

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netns"

	"micronet/api"
)

// https://man7.org/linux/man-pages/man8/ip-netns.8.html
const netNsPath = "/var/run/netns"

// Backend owns the kernel-level existence of node namespaces.
type Backend interface {
	Create(ctx context.Context, node string) (string, error)
	Destroy(ctx context.Context, node string) error
	Path(ctx context.Context, node string) (string, error)
}

// NamespaceBackend creates named namespaces, the same ones `ip netns add` creates.
type NamespaceBackend struct{}

// swapped in tests
var (
	getNs    = netns.Get
	setNs    = netns.Set
	newNamed = netns.NewNamed
)

func (b *NamespaceBackend) Create(ctx context.Context, node string) (string, error) {
	path, _ := b.Path(ctx, node)
	if _, err := os.Stat(path); err == nil {
		return "", errors.Errorf("namespace %s already exists, run teardown first", node)
	}

	errc := make(chan error, 1)
	go func() { errc <- createNamed(node) }()
	if err := <-errc; err != nil {
		return "", err
	}
	logrus.Debugf("created netns %s", path)
	return path, nil
}

// createNamed runs on a goroutine of its own. NewNamed moves the calling
// thread into the new namespace; if it cannot be moved back the goroutine
// exits with the thread still locked and the runtime terminates it.
func createNamed(node string) error {
	runtime.LockOSThread()

	origin, err := getNs()
	if err != nil {
		runtime.UnlockOSThread()
		return errors.Wrap(err, "get current netns")
	}
	defer origin.Close()

	h, err := newNamed(node)
	if h.IsOpen() {
		h.Close()
	}
	if serr := setNs(origin); serr != nil {
		logrus.Errorf("restore netns after creating %s: %v", node, serr)
		return errors.Wrapf(serr, "restore netns after creating %s", node)
	}
	runtime.UnlockOSThread()
	return errors.Wrapf(err, "create netns %s", node)
}

func (b *NamespaceBackend) Destroy(ctx context.Context, node string) error {
	path, _ := b.Path(ctx, node)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return api.ErrNamespaceNotFound
	}
	return errors.Wrapf(netns.DeleteNamed(node), "delete netns %s", node)
}

func (b *NamespaceBackend) Path(_ context.Context, node string) (string, error) {
	return filepath.Join(netNsPath, node), nil
}
