package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/reqsketch/cmd/reqsketch/commands"
	"github.com/Sumatoshi-tech/reqsketch/pkg/accuracy"
	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

// exactStream stays below the level-0 capacity for the default k, so every
// answer is exact.
const exactStream = 50

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := commands.NewRootCommand()

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func sequence(from, to int) string {
	var sb strings.Builder
	for i := from; i <= to; i++ {
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(i))
	}

	return sb.String()
}

func buildSketch(t *testing.T, dir, name, stdin string, extra ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	args := append([]string{"build", "--seed", "7", "-o", path}, extra...)

	out, err := run(t, stdin, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	return path
}

type queryJSON struct {
	Summary struct {
		N   uint64 `json:"n"`
		K   int    `json:"k"`
		HRA bool   `json:"hra"`
	} `json:"summary"`
	Quantiles []struct {
		Rank     float64 `json:"rank"`
		Quantile float64 `json:"quantile"`
	} `json:"quantiles"`
	Ranks []struct {
		Item float64 `json:"item"`
		Rank float64 `json:"rank"`
	} `json:"ranks"`
	CDF []struct {
		Interval string  `json:"interval"`
		Value    float64 `json:"value"`
	} `json:"cdf"`
	Bounds []report.Bound `json:"bounds"`
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()
	assert.Equal(t, "reqsketch", root.Use)
	assert.True(t, root.SilenceUsage)
	assert.True(t, root.SilenceErrors)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"build", "merge", "query", "inspect", "plot", "diff", "eval", "serve", "mcp", "ingest", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestBuildAndQuery(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := buildSketch(t, dir, "latency.req.zst", sequence(1, exactStream))

	out, err := run(t, "", "query", path,
		"--inclusive",
		"--quantiles", "0,0.5,1",
		"--ranks", "25",
		"--cdf", "10,40",
		"--bounds", "0.5",
		"--format", "json",
	)
	require.NoError(t, err)

	var res queryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	assert.Equal(t, uint64(exactStream), res.Summary.N)
	assert.Equal(t, req.DefaultK, res.Summary.K)
	assert.True(t, res.Summary.HRA)

	require.Len(t, res.Quantiles, 3)
	assert.InDelta(t, 1.0, res.Quantiles[0].Quantile, 0)
	assert.InDelta(t, 25.0, res.Quantiles[1].Quantile, 0)
	assert.InDelta(t, 50.0, res.Quantiles[2].Quantile, 0)

	require.Len(t, res.Ranks, 1)
	assert.InDelta(t, 0.5, res.Ranks[0].Rank, 1e-9)

	require.Len(t, res.CDF, 3)
	assert.InDelta(t, 0.2, res.CDF[0].Value, 1e-9)
	assert.InDelta(t, 0.8, res.CDF[1].Value, 1e-9)
	assert.InDelta(t, 1.0, res.CDF[2].Value, 1e-9)
	assert.Equal(t, "<= 10", res.CDF[0].Interval)

	require.Len(t, res.Bounds, 1)
	assert.LessOrEqual(t, res.Bounds[0].Lower, 0.5)
	assert.GreaterOrEqual(t, res.Bounds[0].Upper, 0.5)
}

func TestQuery_TableOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := buildSketch(t, dir, "sizes.req", sequence(1, exactStream), "--type", "int")

	out, err := run(t, "", "query", path, "--type", "int", "--pmf", "10,20")
	require.NoError(t, err)

	assert.Contains(t, out, "Estimation mode")
	assert.Contains(t, out, "MASS")
	assert.Contains(t, out, "[min, 10)")
	assert.Contains(t, out, "[20, max]")
}

func TestQuery_StringItems(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := buildSketch(t, dir, "words.req.sz", "apple\nbanana split\ncherry\n\n", "--type", "string")

	out, err := run(t, "", "query", path, "--type", "string", "--ranks", "banana split", "--inclusive", "--format", "yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "item: banana split")
	assert.Contains(t, out, "stream_length: 3")
}

func TestQuery_EmptySketch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := buildSketch(t, dir, "empty.req", "")

	_, err := run(t, "", "query", path)
	require.ErrorIs(t, err, req.ErrEmptySketch)

	out, err := run(t, "", "inspect", path, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"n": 0`)
}

func TestBuild_ParallelInputsThenMerge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	require.NoError(t, os.WriteFile(first, []byte(sequence(1, 500)), 0o600))
	require.NoError(t, os.WriteFile(second, []byte(sequence(501, 1000)), 0o600))

	combined := filepath.Join(dir, "combined.req.lz4")

	out, err := run(t, "", "build", "--seed", "3", "--workers", "2", "-o", combined, first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "1,000 items from 2 input(s)")

	a := buildSketch(t, dir, "a.req", sequence(1, 300))
	b := buildSketch(t, dir, "b.req", sequence(301, 700))
	merged := filepath.Join(dir, "merged.req")

	out, err = run(t, "", "merge", "-o", merged, a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "merged 2 sketch(es)")
	assert.Contains(t, out, "n=700")

	out, err = run(t, "", "inspect", merged, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "stream_length: 700")
	assert.Contains(t, out, "min: \"1\"")
	assert.Contains(t, out, "max: \"700\"")

	out, err = run(t, "", "inspect", merged, "--levels")
	require.NoError(t, err)
	assert.Contains(t, out, "### REQ sketch levels:")
}

func TestMerge_Incompatible(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := buildSketch(t, dir, "a.req", sequence(1, 10))
	b := buildSketch(t, dir, "b.req", sequence(1, 10), "--k", "20")

	_, err := run(t, "", "merge", "-o", filepath.Join(dir, "out.req"), a, b)
	require.ErrorIs(t, err, req.ErrIncompatibleSketch)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.req")

	_, err := run(t, "1 2", "build")
	require.ErrorIs(t, err, commands.ErrOutputRequired)

	_, err = run(t, "1 x 3", "build", "-o", out)
	require.ErrorIs(t, err, commands.ErrInvalidItem)

	_, err = run(t, "1", "build", "-o", out, "--type", "decimal")
	require.ErrorIs(t, err, commands.ErrUnknownType)

	_, err = run(t, "1", "build", "-o", out, "--k", "0")
	require.ErrorIs(t, err, req.ErrInvalidArgument)

	_, err = run(t, "", "build", "-o", out, filepath.Join(dir, "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPlot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := buildSketch(t, dir, "latency.req", sequence(1, 2000))
	page := filepath.Join(dir, "latency.html")

	_, err := run(t, "", "plot", path, "-o", page, "--bins", "10")
	require.NoError(t, err)

	html, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Cumulative distribution")
	assert.Contains(t, string(html), "Probability mass")

	out, err := run(t, "", "plot", path, "--split-points", "500,1000,1500", "--inclusive")
	require.NoError(t, err)
	assert.Contains(t, out, "<html")
}

func TestDiff(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := buildSketch(t, dir, "a.req", sequence(1, 20))
	b := buildSketch(t, dir, "b.req", sequence(1, 20))
	c := buildSketch(t, dir, "c.req", sequence(1, 30))

	out, err := run(t, "", "diff", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "identical")

	out, err = run(t, "", "diff", a, c)
	require.NoError(t, err)
	assert.Contains(t, out, "- stream_length: 20")
	assert.Contains(t, out, "+ stream_length: 30")
	assert.Contains(t, out, "line(s) added")
}

func TestEval(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "eval", "--n", "2000", "--trials", "3", "--orders", "sorted", "--ranks", "0.5,0.9", "--format", "json")
	require.NoError(t, err)

	var results []accuracy.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, accuracy.OrderSorted, results[0].Order)
	assert.Equal(t, 3, results[0].Trials)
	assert.Len(t, results[0].Ranks, 2)

	_, err = run(t, "", "eval", "--orders", "random")
	require.ErrorIs(t, err, accuracy.ErrInvalidConfig)

	out, err = run(t, "", "eval", "--n", "500", "--trials", "2", "--orders", "reversed")
	require.NoError(t, err)
	assert.Contains(t, out, "reversed stream")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "reqsketch "))

	out, err = run(t, "", "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)

	_, err = run(t, "", "version", "--format", "xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestServiceCommands_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmdName string
		flags   []string
	}{
		{cmdName: "serve", flags: []string{"config", "port", "debug"}},
		{cmdName: "mcp", flags: []string{"config", "debug"}},
		{cmdName: "ingest", flags: []string{"config", "brokers", "topic", "group", "debug"}},
	}

	root := commands.NewRootCommand()

	for _, tt := range tests {
		cmd, _, err := root.Find([]string{tt.cmdName})
		require.NoError(t, err)
		assert.Equal(t, tt.cmdName, cmd.Name())
		assert.NotEmpty(t, cmd.Short)
		assert.NotEmpty(t, cmd.Long)

		for _, name := range tt.flags {
			assert.NotNil(t, cmd.Flags().Lookup(name), "%s --%s", tt.cmdName, name)
		}
	}

	debug := commands.NewMCPCommand().Flags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)
}
