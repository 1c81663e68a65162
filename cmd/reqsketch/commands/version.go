package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
	"github.com/Sumatoshi-tech/reqsketch/pkg/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			info := version.Get()

			if parsed == report.FormatTable {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())

				return nil
			}

			return report.Encode(cmd.OutOrStdout(), parsed, info)
		},
	}

	registerFormat(cmd, &format)

	return cmd
}
