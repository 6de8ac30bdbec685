package cmd

import (
	"github.com/spf13/cobra"

	"micronet/pkg"
	"micronet/pkg/descriptor"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Teardown Topology",
	Long:  `Remove the namespace of every node listed in the loopback descriptor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}
		loopbacks, err := descriptor.LoadLoopbacksFile(cfg.Descriptors.Loopbacks)
		if err != nil {
			return err
		}
		nc, err := newController(false)
		if err != nil {
			return err
		}
		return pkg.NewManager(nc, cfg.IPv6).Teardown(cmd.Context(), loopbacks)
	},
}

func init() {
	rootCmd.AddCommand(teardownCmd)
	teardownCmd.Flags().StringP("loopbacks", "l", "", "loopback descriptor (default configs/topo-loopbacks.txt)")
	teardownCmd.Flags().String("backend", "netns", "node backend: netns or docker")
}
