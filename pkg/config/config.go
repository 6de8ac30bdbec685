// Package config holds the settings of a micronet run. Values come from an
// optional YAML file and are overridden by command line flags.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"micronet/api"
	"micronet/pkg/descriptor"
	"micronet/pkg/netctl"
	"micronet/pkg/node"
)

const (
	BackendNetns  = "netns"
	BackendDocker = "docker"
)

type Config struct {
	Descriptors descriptor.Files `yaml:"descriptors"`
	Shaping     api.Shaping      `yaml:"shaping"`
	IPv6        bool             `yaml:"ipv6"`
	Backend     string           `yaml:"backend"`
	Image       string           `yaml:"image"` // docker backend only
	TraceDir    string           `yaml:"traceDir"`
	LogLevel    string           `yaml:"logLevel"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Descriptors: descriptor.Files{
			Loopbacks: "configs/topo-loopbacks.txt",
			Links:     "configs/topo-links.txt",
			Paths:     "configs/topo-paths.txt",
		},
		Shaping: api.Shaping{
			BandwidthMbit: 1,
			DelayMs:       10,
			LossPercent:   0,
		},
		Backend:  BackendNetns,
		Image:    netctl.DefaultImage,
		TraceDir: node.DefaultTraceDir,
		LogLevel: "info",
	}
}

// Load reads path on top of the defaults. Keys missing from the file keep
// their default value. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, &api.ConfigurationError{Source: path, Msg: err.Error()}
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that flags and files can get wrong.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNetns, BackendDocker:
	default:
		return api.Configf("unknown backend %q, expected %s or %s", c.Backend, BackendNetns, BackendDocker)
	}
	if c.Descriptors.Loopbacks == "" {
		return api.Configf("no loopback descriptor given")
	}
	return nil
}
