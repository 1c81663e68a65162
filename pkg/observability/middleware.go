package observability

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const attrHTTPTarget = "http.target"

// responseRecorder remembers the first status sent through it.
// Handlers that never call WriteHeader answer 200.
type responseRecorder struct {
	http.ResponseWriter

	code        int
	wroteHeader bool
}

func record(rw http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: rw, code: http.StatusOK}
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.code = code
		rr.wroteHeader = true
	}

	rr.ResponseWriter.WriteHeader(code)
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

func (rr *responseRecorder) failed() bool {
	return rr.code >= http.StatusBadRequest
}

// HTTPMiddleware starts a server span named "METHOD /path" around every
// request. An incoming W3C traceparent header becomes the span's parent and
// a 5xx answer marks the span as failed.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(ctx, hr.Method+" "+hr.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				attribute.String(attrHTTPTarget, hr.URL.Path),
			),
		)
		defer span.End()

		rr := record(rw)
		next.ServeHTTP(rr, hr.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCode(rr.code))

		if rr.code >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rr.code))
		}
	})
}

// InstrumentHandler records RED metrics for next under the operation name op.
// Any 4xx or 5xx answer counts as an error.
func InstrumentHandler(red *REDMetrics, op string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		ctx := hr.Context()
		defer red.TrackInflight(ctx, op)()

		start := time.Now()
		rr := record(rw)
		next.ServeHTTP(rr, hr)

		status := StatusOK
		if rr.failed() {
			status = StatusError
		}

		red.RecordRequest(ctx, op, status, time.Since(start))
	})
}
