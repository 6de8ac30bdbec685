package cmd

import (
	"github.com/spf13/cobra"

	"micronet/pkg"
	"micronet/pkg/descriptor"
	"micronet/pkg/netctl"
	"micronet/pkg/show"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show Resources",
	Long: `Show the resources of the topology described by the descriptors. The
topology is resolved in memory, the host is not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}
		class, _ := cmd.Flags().GetString("class")
		format, _ := cmd.Flags().GetString("format")

		desc, err := descriptor.Load(cfg.Descriptors)
		if err != nil {
			return err
		}
		topo, err := pkg.NewManager(netctl.NewFake(), cfg.IPv6).Build(cmd.Context(), desc)
		if err != nil {
			return err
		}
		return show.Render(cmd.OutOrStdout(), topo, class, format)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	descriptorFlags(showCmd)
	showCmd.Flags().String("class", show.ClassNodes, "Class of the element to show: nodes, links, routes or multicast")
	showCmd.Flags().String("format", show.FormatTable, "Output format: table or dot")
}
