package netctl

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"micronet/api"
)

const (
	ContainerPrefix = "micronet-"
	DefaultImage    = "busybox:latest"
)

// ContainerBackend runs every node as a docker container without network
// and uses the container's namespace as the node namespace.
type ContainerBackend struct {
	dClient *client.Client
	image   string
	paths   map[string]string
}

func NewContainerBackend(image string) (*ContainerBackend, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "create docker client")
	}
	if image == "" {
		image = DefaultImage
	}
	return &ContainerBackend{
		dClient: dClient,
		image:   image,
		paths:   make(map[string]string),
	}, nil
}

// ContainerName returns the container that hosts node. Docker names need at
// least two characters, node ids are often a single digit.
func ContainerName(node string) string {
	return ContainerPrefix + node
}

// Create starts the container of node and returns its netns path
func (cb *ContainerBackend) Create(ctx context.Context, node string) (string, error) {
	name := ContainerName(node)

	sysctls := make(map[string]string)
	sysctls["net.ipv4.ip_forward"] = "1"
	sysctls["net.ipv6.conf.all.forwarding"] = "1"

	_, err := cb.dClient.ContainerCreate(ctx, &container.Config{
		Image:           cb.image,
		Cmd:             []string{"sleep", "infinity"},
		NetworkDisabled: true,
		User:            "root",
		Labels:          map[string]string{"micronet.node": node},
	}, &container.HostConfig{
		NetworkMode: "none",
		Privileged:  true,
		Sysctls:     sysctls,
	}, nil, nil, name)
	if err != nil {
		return "", errors.Wrapf(err, "create container %s", name)
	}

	if err = cb.dClient.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return "", errors.Wrapf(err, "start container %s", name)
	}
	logrus.Debugf("started container %s", name)
	return cb.Path(ctx, node)
}

// Path returns /proc/<pid>/ns/net of the running container
func (cb *ContainerBackend) Path(ctx context.Context, node string) (string, error) {
	if p, ok := cb.paths[node]; ok {
		return p, nil
	}
	res, err := cb.dClient.ContainerInspect(ctx, ContainerName(node))
	if err != nil {
		return "", errors.Wrapf(err, "inspect container %s", ContainerName(node))
	}
	if res.State == nil || res.State.Pid == 0 {
		return "", errors.Errorf("container %s is not running", ContainerName(node))
	}
	p := fmt.Sprintf("/proc/%d/ns/net", res.State.Pid)
	cb.paths[node] = p
	return p, nil
}

func (cb *ContainerBackend) Destroy(ctx context.Context, node string) error {
	delete(cb.paths, node)
	err := cb.dClient.ContainerRemove(ctx, ContainerName(node), container.RemoveOptions{Force: true})
	if errdefs.IsNotFound(err) {
		return api.ErrNamespaceNotFound
	}
	return errors.Wrapf(err, "remove container %s", ContainerName(node))
}
