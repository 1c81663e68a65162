package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/config"
	"github.com/Sumatoshi-tech/reqsketch/pkg/mcp"
	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes the sketch registry as tools that AI agents can discover
and invoke:
  - sketch_update: add values to a named sketch
  - sketch_quantiles, sketch_rank: quantile and rank queries
  - sketch_cdf, sketch_pmf: distribution queries
  - sketch_summary, sketch_list: inspect the registry

Sketches are restored from and flushed to the configured store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs always go to stderr as JSON.
			cfg.Logging.Format = "json"

			return runMCP(cmd.Context(), cfg, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, flagConfig, "c", "", "Config file (default .reqsketch.yaml)")
	cmd.Flags().BoolVar(&debug, flagDebug, false, "Enable debug logging to stderr")

	return cmd
}

func runMCP(ctx context.Context, cfg *config.Config, debug bool) (err error) {
	env, err := startRuntime(ctx, cfg, observability.ModeMCP, debug)
	if err != nil {
		return err
	}

	defer func() {
		_, flushErr := env.registry.Flush(context.WithoutCancel(ctx))
		if flushErr != nil {
			flushErr = fmt.Errorf("final flush: %w", flushErr)
		}

		err = errors.Join(err, flushErr, env.close(context.WithoutCancel(ctx)))
	}()

	srv := mcp.NewServer(mcp.ServerDeps{
		Registry: env.registry,
		Logger:   env.logger(),
		Metrics:  env.red,
		Tracer:   env.providers.Tracer,
	})

	return srv.Run(ctx)
}
