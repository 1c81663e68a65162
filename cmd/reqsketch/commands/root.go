package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the reqsketch command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reqsketch",
		Short: "REQ sketch - relative-error quantiles over streams",
		Long: `reqsketch builds, merges and queries REQ quantile sketches. Rank errors
shrink toward the high end of the distribution (or the low end with
--hra=false), which keeps tail latencies accurate in a small footprint.

Commands:
  build, merge, query, inspect, plot, diff   work with sketch files
  eval                                       measure accuracy
  serve, mcp, ingest                         run the sketch service`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewBuildCommand(),
		NewMergeCommand(),
		NewQueryCommand(),
		NewInspectCommand(),
		NewPlotCommand(),
		NewDiffCommand(),
		NewEvalCommand(),
		NewServeCommand(),
		NewMCPCommand(),
		NewIngestCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}
