package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "reqsketch.requests.total"
	metricRequestDuration  = "reqsketch.request.duration.seconds"
	metricErrorsTotal      = "reqsketch.errors.total"
	metricInflightRequests = "reqsketch.inflight.requests"

	metricUpdatesTotal    = "reqsketch.sketch.updates.total"
	metricItemsTotal      = "reqsketch.sketch.items.total"
	metricMergesTotal     = "reqsketch.sketch.merges.total"
	metricRetainedItems   = "reqsketch.sketch.retained.items"
	metricSerializedBytes = "reqsketch.sketch.serialized.bytes"

	attrOp     = "op"
	attrStatus = "status"
	attrSketch = "sketch"

	// StatusOK labels a successful request.
	StatusOK = "ok"
	// StatusError labels a failed request.
	StatusError = "error"
)

// durationBucketBoundaries covers 100µs to 10s: sketch queries are fast,
// bulk merges and flushes to object storage are not.
var durationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// sizeBucketBoundaries covers serialized sketches from 64 B to 16 MiB.
var sizeBucketBoundaries = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// SketchMetrics holds the instruments describing sketch activity.
type SketchMetrics struct {
	updates    metric.Int64Counter
	items      metric.Int64Counter
	merges     metric.Int64Counter
	retained   metric.Int64Gauge
	serialized metric.Int64Histogram
}

// NewSketchMetrics creates sketch instruments from the given meter.
func NewSketchMetrics(mt metric.Meter) (*SketchMetrics, error) {
	updates, err := mt.Int64Counter(metricUpdatesTotal,
		metric.WithDescription("Update batches applied to sketches"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUpdatesTotal, err)
	}

	items, err := mt.Int64Counter(metricItemsTotal,
		metric.WithDescription("Items fed into sketches"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricItemsTotal, err)
	}

	merges, err := mt.Int64Counter(metricMergesTotal,
		metric.WithDescription("Sketch merges"),
		metric.WithUnit("{merge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMergesTotal, err)
	}

	retained, err := mt.Int64Gauge(metricRetainedItems,
		metric.WithDescription("Items retained by a sketch"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRetainedItems, err)
	}

	serialized, err := mt.Int64Histogram(metricSerializedBytes,
		metric.WithDescription("Size of serialized sketches"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSerializedBytes, err)
	}

	return &SketchMetrics{
		updates:    updates,
		items:      items,
		merges:     merges,
		retained:   retained,
		serialized: serialized,
	}, nil
}

// RecordUpdate records one update batch of count items and the retained size afterwards.
func (sm *SketchMetrics) RecordUpdate(ctx context.Context, sketch string, count, retained int) {
	attrs := metric.WithAttributes(attribute.String(attrSketch, sketch))

	sm.updates.Add(ctx, 1, attrs)
	sm.items.Add(ctx, int64(count), attrs)
	sm.retained.Record(ctx, int64(retained), attrs)
}

// RecordMerge records a merge into sketch and the retained size afterwards.
func (sm *SketchMetrics) RecordMerge(ctx context.Context, sketch string, retained int) {
	attrs := metric.WithAttributes(attribute.String(attrSketch, sketch))

	sm.merges.Add(ctx, 1, attrs)
	sm.retained.Record(ctx, int64(retained), attrs)
}

// RecordSerialized records the encoded size of a sketch.
func (sm *SketchMetrics) RecordSerialized(ctx context.Context, sketch string, size int) {
	sm.serialized.Record(ctx, int64(size), metric.WithAttributes(attribute.String(attrSketch, sketch)))
}
