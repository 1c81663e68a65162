package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/reqsketch/pkg/config"
	"github.com/Sumatoshi-tech/reqsketch/pkg/httpapi"
	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type serveOptions struct {
	configPath string
	port       int
	debug      bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve named sketches over HTTP",
		Long: `Serve a registry of named float sketches over a JSON HTTP API.

Sketches are restored from the configured store at startup, flushed every
storage.flush_interval and once more on shutdown. /metrics exposes Prometheus
metrics unless an OTLP endpoint is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, opts.debug)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, flagConfig, "c", "", "Config file (default .reqsketch.yaml)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", config.DefaultServerPort, "Listen port, overrides server.port")
	cmd.Flags().BoolVar(&opts.debug, flagDebug, false, "Enable debug logging")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, debug bool) (err error) {
	env, err := startRuntime(ctx, cfg, observability.ModeServe, debug)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, env.close(context.WithoutCancel(ctx)))
	}()

	maxBody, err := cfg.Server.MaxBodyBytes()
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Options{
		Registry:       env.registry,
		Logger:         env.logger(),
		Tracer:         env.providers.Tracer,
		RED:            env.red,
		MetricsHandler: env.providers.MetricsHandler,
		MaxBodyBytes:   maxBody,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		env.logger().InfoContext(gctx, "listening", "addr", srv.Addr)

		listenErr := srv.ListenAndServe()
		if errors.Is(listenErr, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("listen: %w", listenErr)
	})

	g.Go(func() error {
		flushLoop(gctx, env, cfg.Storage.FlushInterval)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		env.logger().InfoContext(shutdownCtx, "shutting down")

		shutdownErr := srv.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			return fmt.Errorf("shutdown: %w", shutdownErr)
		}

		flushed, flushErr := env.registry.Flush(shutdownCtx)
		if flushErr != nil {
			return fmt.Errorf("final flush: %w", flushErr)
		}

		env.logger().InfoContext(shutdownCtx, "final flush", "sketches", flushed)

		return nil
	})

	return g.Wait()
}

// flushLoop persists dirty sketches every interval until ctx is done.
func flushLoop(ctx context.Context, env *runtimeEnv, interval time.Duration) {
	if env.store == nil || interval <= 0 {
		<-ctx.Done()

		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flushed, err := env.registry.Flush(ctx)
			if err != nil {
				env.logger().WarnContext(ctx, "periodic flush failed", "error", err)

				continue
			}

			if flushed > 0 {
				env.logger().DebugContext(ctx, "flushed sketches", "count", flushed)
			}
		}
	}
}
