// Package httpapi serves the sketch registry over HTTP: JSON query endpoints,
// binary snapshot and merge endpoints, health probes and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
	"github.com/Sumatoshi-tech/reqsketch/pkg/service"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	defaultMaxBodyBytes = 4 << 20
	contentTypeJSON     = "application/json"
	contentTypeBinary   = "application/octet-stream"
	defaultNumStdDev    = 2
)

// RequestID returns the identifier assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	return observability.RequestIDFrom(ctx)
}

// Options configures a Server.
type Options struct {
	Registry *service.Registry
	Logger   *slog.Logger

	// Tracer creates a span per request. Nil disables tracing.
	Tracer trace.Tracer

	// RED records per-route request metrics. Nil disables them.
	RED *observability.REDMetrics

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// MaxBodyBytes limits request bodies. Zero means 4 MiB.
	MaxBodyBytes int64
}

// Server is the HTTP front end of a Registry.
type Server struct {
	reg     *service.Registry
	logger  *slog.Logger
	red     *observability.REDMetrics
	schemas schemaSet
	maxBody int64
	handler http.Handler
}

// New builds the route table.
func New(opts Options) (*Server, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	s := &Server{
		reg:     opts.Registry,
		logger:  opts.Logger,
		red:     opts.RED,
		schemas: schemas,
		maxBody: opts.MaxBodyBytes,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBodyBytes
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	mux := http.NewServeMux()

	s.route(mux, "GET /v1/sketches", "list", s.handleList)
	s.route(mux, "GET /v1/sketches/{name}", "summary", s.handleSummary)
	s.route(mux, "DELETE /v1/sketches/{name}", "delete", s.handleDelete)
	s.route(mux, "POST /v1/sketches/{name}/update", "update", s.handleUpdate)
	s.route(mux, "POST /v1/sketches/{name}/quantiles", "quantiles", s.handleQuantiles)
	s.route(mux, "POST /v1/sketches/{name}/ranks", "ranks", s.handleRanks)
	s.route(mux, "POST /v1/sketches/{name}/pmf", "pmf", s.handlePMF)
	s.route(mux, "POST /v1/sketches/{name}/cdf", "cdf", s.handleCDF)
	s.route(mux, "POST /v1/sketches/{name}/bounds", "bounds", s.handleBounds)
	s.route(mux, "GET /v1/sketches/{name}/snapshot", "snapshot", s.handleSnapshot)
	s.route(mux, "PUT /v1/sketches/{name}/merge", "merge", s.handleMerge)
	s.route(mux, "POST /v1/flush", "flush", s.handleFlush)

	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler(observability.Check{Name: "store", Probe: s.reg.Ready}))

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.handler = observability.HTTPMiddleware(tracer, s.withRequestID(mux))

	return s, nil
}

func (s *Server) route(mux *http.ServeMux, pattern, op string, fn http.HandlerFunc) {
	var h http.Handler = fn
	if s.red != nil {
		h = observability.InstrumentHandler(s.red, op, h)
	}

	mux.Handle(pattern, h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(rw http.ResponseWriter, hr *http.Request) {
	s.handler.ServeHTTP(rw, hr)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		id := hr.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		rw.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(rw, hr.WithContext(observability.WithRequestID(hr.Context(), id)))
	})
}

func (s *Server) readBody(rw http.ResponseWriter, hr *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(rw, hr.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

// decode reads a JSON body, validates it against schema and unmarshals it into dst.
func (s *Server) decode(rw http.ResponseWriter, hr *http.Request, schema string, dst any) error {
	body, err := s.readBody(rw, hr)
	if err != nil {
		return err
	}

	err = s.schemas.validate(schema, body)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}

func (s *Server) writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", contentTypeJSON)
	rw.WriteHeader(status)

	err := json.NewEncoder(rw).Encode(value)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(ctx context.Context, rw http.ResponseWriter, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed", "error", err)
	} else {
		s.logger.DebugContext(ctx, "request rejected", "error", err, "status", status)
	}

	s.writeJSON(ctx, rw, status, errorResponse{Error: err.Error(), RequestID: RequestID(ctx)})
}
