package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"micronet/pkg"
	"micronet/pkg/descriptor"
	"micronet/pkg/netctl"
	"micronet/pkg/show"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build Topology",
	Long: `Build the topology described by the loopback, links, paths and multicast
descriptors, then shape every link with netem.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}
		clean, _ := cmd.Flags().GetBool("clean")
		noShaping, _ := cmd.Flags().GetBool("no-shaping")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		desc, err := descriptor.Load(cfg.Descriptors)
		if err != nil {
			return err
		}
		nc, err := newController(dryRun)
		if err != nil {
			return err
		}
		m := pkg.NewManager(nc, cfg.IPv6)
		ctx := cmd.Context()

		if clean {
			if err = m.Teardown(ctx, desc.Loopbacks); err != nil {
				return err
			}
		}
		built, err := m.Run(ctx, desc)
		if err != nil {
			return err
		}
		if !noShaping {
			if err = built.Shape(cfg.Shaping); err != nil {
				return err
			}
		}

		if fake, ok := nc.(*netctl.Fake); ok {
			for _, op := range fake.Ops {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return show.Render(cmd.OutOrStdout(), built.Topology(), show.ClassNodes, show.FormatTable)
		}
		logrus.Info("build done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	descriptorFlags(buildCmd)
	buildCmd.Flags().Float64("bw", 1, "link bandwidth in Mbit/s")
	buildCmd.Flags().Float64("delay", 10, "link delay in ms")
	buildCmd.Flags().Float64("loss", 0, "link loss in percent")
	buildCmd.Flags().Bool("clean", false, "tear the topology down before building it")
	buildCmd.Flags().Bool("no-shaping", false, "do not install netem qdiscs")
	buildCmd.Flags().String("backend", "netns", "node backend: netns or docker")
	buildCmd.Flags().String("image", netctl.DefaultImage, "container image of the docker backend")
	buildCmd.Flags().Bool("dry-run", false, "print the operations instead of running them")
}
