package cmd

import (
	"github.com/spf13/cobra"

	"micronet/pkg"
	"micronet/pkg/node"
)

var execCmd = &cobra.Command{
	Use:   "exec <node> -- <command> [args...]",
	Short: "Run a command inside a node",
	Long: `Run a command inside the network namespace of a node. Its output goes to
<trace-dir>/<node>/<command>.log and QLOGDIR points at <trace-dir>/<node>.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}
		background, _ := cmd.Flags().GetBool("background")
		env, _ := cmd.Flags().GetStringArray("env")

		nc, err := newController(false)
		if err != nil {
			return err
		}
		_, err = pkg.NewManager(nc, cfg.IPv6).Exec(cmd.Context(), args[0], args[1:], node.ExecOptions{
			TraceDir:   cfg.TraceDir,
			Env:        env,
			Background: background,
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().String("trace-dir", node.DefaultTraceDir, "directory receiving per-node logs and qlog traces")
	execCmd.Flags().Bool("background", false, "do not wait for the command to exit")
	execCmd.Flags().StringArray("env", nil, "extra environment variable, KEY=VALUE")
	execCmd.Flags().String("backend", "netns", "node backend: netns or docker")
}
