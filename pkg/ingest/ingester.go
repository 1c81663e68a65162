package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
	"github.com/Sumatoshi-tech/reqsketch/pkg/safeconv"
	"github.com/Sumatoshi-tech/reqsketch/pkg/service"
)

// ErrMissingDependency is returned by New when the source or registry is nil.
var ErrMissingDependency = errors.New("ingest: source and registry are required")

const (
	batchOp         = "ingest.batch"
	shutdownTimeout = 10 * time.Second
)

// Options configures an Ingester.
type Options struct {
	Source   Source
	Registry *service.Registry

	// DefaultSketch receives records without a key.
	DefaultSketch string

	// FlushInterval between registry flushes. Zero flushes only on shutdown.
	FlushInterval time.Duration

	Logger *slog.Logger
	RED    *observability.REDMetrics
}

// Stats counts what the ingester has processed.
type Stats struct {
	Batches  uint64
	Records  uint64
	Values   uint64
	Rejected uint64
}

// Ingester applies consumed records to the registry.
type Ingester struct {
	src           Source
	reg           *service.Registry
	defaultSketch string
	flushInterval time.Duration
	logger        *slog.Logger
	red           *observability.REDMetrics

	batches  atomic.Uint64
	records  atomic.Uint64
	values   atomic.Uint64
	rejected atomic.Uint64
}

// New validates opts and returns an Ingester.
func New(opts Options) (*Ingester, error) {
	if opts.Source == nil || opts.Registry == nil {
		return nil, ErrMissingDependency
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingester{
		src:           opts.Source,
		reg:           opts.Registry,
		defaultSketch: opts.DefaultSketch,
		flushInterval: opts.FlushInterval,
		logger:        logger,
		red:           opts.RED,
	}, nil
}

// Stats returns the current counters.
func (in *Ingester) Stats() Stats {
	return Stats{
		Batches:  in.batches.Load(),
		Records:  in.records.Load(),
		Values:   in.values.Load(),
		Rejected: in.rejected.Load(),
	}
}

// Run polls until ctx is canceled, then flushes the registry one last time.
func (in *Ingester) Run(ctx context.Context) error {
	in.logger.InfoContext(ctx, "starting ingester", "default_sketch", in.defaultSketch)

	var tick <-chan time.Time

	if in.flushInterval > 0 {
		ticker := time.NewTicker(in.flushInterval)
		defer ticker.Stop()

		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return in.shutdown(ctx)
		case <-tick:
			in.flush(ctx)
		default:
		}

		records, err := in.src.Poll(ctx)
		if ctx.Err() != nil {
			return in.shutdown(ctx)
		}

		if errors.Is(err, ErrClientClosed) {
			return err
		}

		if err != nil {
			in.logger.WarnContext(ctx, "poll returned errors", "error", err)
		}

		if len(records) == 0 {
			continue
		}

		err = in.processBatch(ctx, records)
		if err != nil {
			return fmt.Errorf("process batch: %w", err)
		}
	}
}

func (in *Ingester) processBatch(ctx context.Context, records []Record) error {
	start := time.Now()

	err := in.apply(ctx, records)
	if err == nil {
		err = in.src.Commit(ctx)
	}

	if in.red != nil {
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
		}

		in.red.RecordRequest(ctx, batchOp, status, time.Since(start))
	}

	if err != nil {
		return err
	}

	in.batches.Add(1)

	return nil
}

// apply groups the batch by sketch so each sketch is locked once per batch.
func (in *Ingester) apply(ctx context.Context, records []Record) error {
	groups := make(map[string][]float64)

	for _, rec := range records {
		in.records.Add(1)

		name := string(rec.Key)
		if name == "" {
			name = in.defaultSketch
		}

		values, err := ParseValues(rec.Value)
		if err != nil {
			in.rejected.Add(1)
			in.logger.WarnContext(ctx, "rejecting record",
				"partition", rec.Partition, "offset", rec.Offset, "error", err)

			continue
		}

		groups[name] = append(groups[name], values...)
	}

	for _, name := range slices.Sorted(maps.Keys(groups)) {
		values := groups[name]
		if len(values) == 0 {
			continue
		}

		_, err := in.reg.Update(ctx, name, values)
		if errors.Is(err, persist.ErrInvalidName) {
			in.rejected.Add(1)
			in.logger.WarnContext(ctx, "rejecting values for invalid sketch name", "sketch", name)

			continue
		}

		if err != nil {
			return fmt.Errorf("update %s: %w", name, err)
		}

		in.values.Add(safeconv.MustIntToUint64(len(values)))
	}

	return nil
}

func (in *Ingester) flush(ctx context.Context) {
	_, err := in.reg.Flush(ctx)
	if err != nil {
		in.logger.ErrorContext(ctx, "periodic flush failed", "error", err)
	}
}

func (in *Ingester) shutdown(ctx context.Context) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	_, err := in.reg.Flush(flushCtx)
	if err != nil {
		return fmt.Errorf("final flush: %w", err)
	}

	stats := in.Stats()
	in.logger.InfoContext(ctx, "ingester stopped",
		"batches", stats.Batches, "records", stats.Records,
		"values", stats.Values, "rejected", stats.Rejected)

	return nil
}
