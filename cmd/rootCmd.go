package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"micronet/pkg/config"
	"micronet/pkg/netctl"
)

var (
	cfgFile  string
	logLevel string
	debug    bool

	// cfg is loaded before any sub-command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "micronet",
	Short: "micronet network emulator",
	Long: `micronet builds an emulated network out of network namespaces, veth pairs,
static routes, smcroute multicast rules and netem qdiscs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		if debug {
			logrus.SetReportCaller(true)
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// descriptorFlags registers the descriptor path flags shared by build and show.
func descriptorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("loopbacks", "l", "", "loopback descriptor (default configs/topo-loopbacks.txt)")
	cmd.Flags().StringP("links", "i", "", "links descriptor (default configs/topo-links.txt)")
	cmd.Flags().StringP("paths", "p", "", "paths descriptor (default configs/topo-paths.txt)")
	cmd.Flags().StringP("multicast", "m", "", "multicast descriptor, optional")
	cmd.Flags().Bool("ipv6", false, "use IPv6 addresses")
}

// applyFlags copies the flags the user set on top of cfg.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"loopbacks": &cfg.Descriptors.Loopbacks,
		"links":     &cfg.Descriptors.Links,
		"paths":     &cfg.Descriptors.Paths,
		"multicast": &cfg.Descriptors.Multicast,
		"backend":   &cfg.Backend,
		"image":     &cfg.Image,
		"trace-dir": &cfg.TraceDir,
	} {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	for name, dst := range map[string]*float64{
		"bw":    &cfg.Shaping.BandwidthMbit,
		"delay": &cfg.Shaping.DelayMs,
		"loss":  &cfg.Shaping.LossPercent,
	} {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}
	if flags.Lookup("ipv6") != nil && flags.Changed("ipv6") {
		cfg.IPv6, _ = flags.GetBool("ipv6")
	}
	return cfg.Validate()
}

// newController returns the host controller selected by the configuration.
func newController(dryRun bool) (netctl.Controller, error) {
	if dryRun {
		return netctl.NewFake(), nil
	}
	switch cfg.Backend {
	case config.BackendDocker:
		backend, err := netctl.NewContainerBackend(cfg.Image)
		if err != nil {
			return nil, err
		}
		return netctl.NewLinux(backend), nil
	default:
		return netctl.NewLinux(&netctl.NamespaceBackend{}), nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging with caller information")
}
