package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameUpdate    = "sketch_update"
	ToolNameQuantiles = "sketch_quantiles"
	ToolNameRank      = "sketch_rank"
	ToolNameCDF       = "sketch_cdf"
	ToolNamePMF       = "sketch_pmf"
	ToolNameSummary   = "sketch_summary"
	ToolNameList      = "sketch_list"
)

// Input types (auto-generate JSON schemas via struct tags).

// UpdateInput is the input schema for the sketch_update tool.
type UpdateInput struct {
	Name   string    `json:"name"   jsonschema:"sketch name (letters, digits, dash, underscore, dot)"`
	Values []float64 `json:"values" jsonschema:"values to add"`
}

// QuantilesInput is the input schema for the sketch_quantiles tool.
type QuantilesInput struct {
	Name      string    `json:"name"                jsonschema:"sketch name"`
	Ranks     []float64 `json:"ranks"               jsonschema:"normalized ranks in [0, 1]"`
	Inclusive bool      `json:"inclusive,omitempty" jsonschema:"count items equal to the answer as below the rank"`
}

// RankInput is the input schema for the sketch_rank tool.
type RankInput struct {
	Name      string    `json:"name"                jsonschema:"sketch name"`
	Values    []float64 `json:"values"              jsonschema:"values to rank"`
	Inclusive bool      `json:"inclusive,omitempty" jsonschema:"include items equal to the value in its rank"`
}

// DistributionInput is the input schema for the sketch_cdf and sketch_pmf tools.
type DistributionInput struct {
	Name        string    `json:"name"                jsonschema:"sketch name"`
	SplitPoints []float64 `json:"split_points"        jsonschema:"strictly increasing split points"`
	Inclusive   bool      `json:"inclusive,omitempty" jsonschema:"close intervals on the right instead of the left"`
}

// SummaryInput is the input schema for the sketch_summary tool.
type SummaryInput struct {
	Name string `json:"name" jsonschema:"sketch name"`
}

// ListInput is the input schema for the sketch_list tool.
type ListInput struct{}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// UpdateResult is returned by sketch_update.
type UpdateResult struct {
	Name string `json:"name"`
	N    uint64 `json:"n"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func (s *Server) handleUpdate(ctx context.Context, _ *mcpsdk.CallToolRequest, in UpdateInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	n, err := s.reg.Update(ctx, in.Name, in.Values)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(UpdateResult{Name: in.Name, N: n})
}

func (s *Server) handleQuantiles(_ context.Context, _ *mcpsdk.CallToolRequest, in QuantilesInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	qs, err := s.reg.Quantiles(in.Name, in.Ranks, in.Inclusive)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string][]float64{"ranks": in.Ranks, "quantiles": qs})
}

func (s *Server) handleRank(_ context.Context, _ *mcpsdk.CallToolRequest, in RankInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	ranks, err := s.reg.Ranks(in.Name, in.Values, in.Inclusive)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string][]float64{"values": in.Values, "ranks": ranks})
}

func (s *Server) handleCDF(_ context.Context, _ *mcpsdk.CallToolRequest, in DistributionInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	cdf, err := s.reg.CDF(in.Name, in.SplitPoints, in.Inclusive)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string][]float64{"split_points": in.SplitPoints, "cdf": cdf})
}

func (s *Server) handlePMF(_ context.Context, _ *mcpsdk.CallToolRequest, in DistributionInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	pmf, err := s.reg.PMF(in.Name, in.SplitPoints, in.Inclusive)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string][]float64{"split_points": in.SplitPoints, "pmf": pmf})
}

func (s *Server) handleSummary(_ context.Context, _ *mcpsdk.CallToolRequest, in SummaryInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	summary, err := s.reg.Summary(in.Name)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(summary)
}

func (s *Server) handleList(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	names := s.reg.Names()
	if names == nil {
		names = []string{}
	}

	return jsonResult(map[string][]string{"sketches": names})
}
