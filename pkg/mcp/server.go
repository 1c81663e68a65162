// Package mcp serves the sketch registry to Model Context Protocol clients.
// Each registry operation is one tool; the default transport is stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
	"github.com/Sumatoshi-tech/reqsketch/pkg/service"
	"github.com/Sumatoshi-tech/reqsketch/pkg/version"
)

const (
	implementationName = "reqsketch"

	// opPrefix namespaces tool spans and RED operations, e.g. "mcp.sketch_rank".
	opPrefix = "mcp."

	attrTool = "mcp.tool"

	traceIDPrefix = "trace_id="
)

// ServerDeps holds the collaborators of a Server. Only Registry is required.
type ServerDeps struct {
	Registry *service.Registry
	Logger   *slog.Logger
	Metrics  *observability.REDMetrics
	Tracer   trace.Tracer
}

// Server exposes a sketch registry as MCP tools.
type Server struct {
	inner  *mcpsdk.Server
	reg    *service.Registry
	logger *slog.Logger
	red    *observability.REDMetrics
	tracer trace.Tracer
	names  []string
}

// NewServer builds a Server with every sketch tool registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(implementationName)
	}

	srv := &Server{
		inner: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: implementationName, Version: version.Version},
			&mcpsdk.ServerOptions{Logger: deps.Logger},
		),
		reg:    deps.Registry,
		logger: logger,
		red:    deps.Metrics,
		tracer: tracer,
	}

	register(srv, ToolNameUpdate, "Add numeric values to a named quantile sketch, creating it on first use. "+
		"Returns the sketch's total stream length.", srv.handleUpdate)
	register(srv, ToolNameQuantiles, "Estimate quantiles of a named sketch at normalized ranks in [0, 1]. "+
		"Rank 0 and 1 return the exact minimum and maximum.", srv.handleQuantiles)
	register(srv, ToolNameRank, "Estimate the normalized rank of values in a named sketch.", srv.handleRank)
	register(srv, ToolNameCDF, "Estimate the cumulative distribution of a named sketch at strictly "+
		"increasing split points. The last entry is always 1.", srv.handleCDF)
	register(srv, ToolNamePMF, "Estimate the probability mass between strictly increasing split points "+
		"of a named sketch.", srv.handlePMF)
	register(srv, ToolNameSummary, "Describe a named sketch: k, accuracy mode, stream length, retained "+
		"items, levels, minimum and maximum.", srv.handleSummary)
	register(srv, ToolNameList, "List the names of all sketches.", srv.handleList)

	return srv
}

// ListToolNames returns the registered tool names in sorted order.
func (s *Server) ListToolNames() []string {
	return slices.Sorted(slices.Values(s.names))
}

// Run serves on stdin and stdout until ctx is canceled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

type toolHandler[In any] func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error)

func register[In any](s *Server, name, description string, handler toolHandler[In]) {
	mcpsdk.AddTool(s.inner,
		&mcpsdk.Tool{Name: name, Description: description},
		mcpsdk.ToolHandlerFor[In, ToolOutput](instrument(s, name, handler)),
	)

	s.names = append(s.names, name)
}

// instrument runs handler inside a server span and records its RED metrics.
// A sampled span appends its trace id to the result content.
func instrument[In any](s *Server, name string, handler toolHandler[In]) toolHandler[In] {
	op := opPrefix + name

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := s.tracer.Start(ctx, op,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String(attrTool, name)),
		)
		defer span.End()

		if s.red != nil {
			defer s.red.TrackInflight(ctx, op)()
		}

		start := time.Now()
		result, output, err := handler(ctx, req, in)
		elapsed := time.Since(start)

		failed := err != nil || (result != nil && result.IsError)
		if failed {
			span.SetStatus(codes.Error, "tool call failed")
			s.logger.DebugContext(ctx, "mcp tool failed", "tool", name, "error", err)
		}

		if s.red != nil {
			status := observability.StatusOK
			if failed {
				status = observability.StatusError
			}

			s.red.RecordRequest(ctx, op, status, elapsed)
		}

		if sc := span.SpanContext(); sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{Text: traceIDPrefix + sc.TraceID().String()})
		}

		return result, output, err
	}
}
