package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/reqsketch/pkg/config"
	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
	"github.com/Sumatoshi-tech/reqsketch/pkg/service"
	"github.com/Sumatoshi-tech/reqsketch/pkg/version"
)

// runtimeEnv is what the long-running modes share: telemetry, metrics and
// a registry restored from the configured store.
type runtimeEnv struct {
	providers observability.Providers
	red       *observability.REDMetrics
	registry  *service.Registry
	store     persist.Store
}

func initObservability(cfg *config.Config, mode observability.AppMode, debug bool) (observability.Providers, error) {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.Environment = cfg.Telemetry.Environment
	obs.Mode = mode
	obs.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obs.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obs.SampleRatio = cfg.Telemetry.SampleRatio
	obs.LogLevel = observability.ParseLogLevel(cfg.Logging.Level)
	obs.LogJSON = cfg.Logging.Format == "json"
	obs.Prometheus = mode == observability.ModeServe

	if debug {
		obs.LogLevel = slog.LevelDebug
	}

	return observability.Init(obs)
}

func startRuntime(ctx context.Context, cfg *config.Config, mode observability.AppMode, debug bool) (*runtimeEnv, error) {
	providers, err := initObservability(cfg, mode, debug)
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{providers: providers}

	err = env.open(ctx, cfg)
	if err != nil {
		return nil, errors.Join(err, env.close(context.WithoutCancel(ctx)))
	}

	return env, nil
}

func (env *runtimeEnv) open(ctx context.Context, cfg *config.Config) error {
	red, err := observability.NewREDMetrics(env.providers.Meter)
	if err != nil {
		return err
	}

	sketchMetrics, err := observability.NewSketchMetrics(env.providers.Meter)
	if err != nil {
		return err
	}

	env.red = red

	env.store, err = persist.OpenStore(cfg.Storage)
	if err != nil {
		return err
	}

	env.registry, err = service.NewRegistry(service.Options{
		K:       cfg.Sketch.K,
		HRA:     cfg.Sketch.HRA,
		Seed:    cfg.Sketch.Seed,
		Store:   env.store,
		Logger:  env.providers.Logger,
		Metrics: sketchMetrics,
	})
	if err != nil {
		return err
	}

	if env.store == nil {
		return nil
	}

	loaded, err := env.registry.Load(ctx)
	if err != nil {
		return err
	}

	env.providers.Logger.InfoContext(ctx, "restored sketches", "count", loaded, "backend", cfg.Storage.Backend)

	return nil
}

func (env *runtimeEnv) logger() *slog.Logger {
	return env.providers.Logger
}

// close releases the store and flushes telemetry.
func (env *runtimeEnv) close(ctx context.Context) error {
	var errs []error

	if env.store != nil {
		errs = append(errs, env.store.Close())
	}

	shutdownErr := env.providers.Shutdown(ctx)
	if shutdownErr != nil {
		env.providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
	}

	return errors.Join(errs...)
}
