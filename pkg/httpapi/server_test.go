package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/httpapi"
	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
	"github.com/Sumatoshi-tech/reqsketch/pkg/service"
)

const (
	testK       = 12
	testMaxBody = 1024
)

func newServer(t *testing.T, store persist.Store) *httptest.Server {
	t.Helper()

	reg, err := service.NewRegistry(service.Options{K: testK, HRA: true, Seed: 1, Store: store})
	require.NoError(t, err)

	red, err := observability.NewREDMetrics(sdkmetric.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	srv, err := httpapi.New(httpapi.Options{Registry: reg, RED: red, MaxBodyBytes: testMaxBody})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	hr, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(hr)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()

	var out T

	require.NoError(t, json.Unmarshal(data, &out), string(data))

	return out
}

func TestServer_UpdateAndQuery(t *testing.T) {
	t.Parallel()

	ts := newServer(t, nil)
	base := ts.URL + "/v1/sketches/latency"

	resp, body := do(t, http.MethodPost, base+"/update", `{"values":[1,2,3,4,5,6,7,8,9,10]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"name":"latency","n":10}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(httpapi.HeaderRequestID))

	resp, body = do(t, http.MethodPost, base+"/quantiles", `{"ranks":[0,0.5,1],"inclusive":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"ranks":[0,0.5,1],"quantiles":[1,5,10]}`, string(body))

	resp, body = do(t, http.MethodPost, base+"/ranks", `{"values":[5],"inclusive":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"values":[5],"ranks":[0.5]}`, string(body))

	resp, body = do(t, http.MethodPost, base+"/pmf", `{"split_points":[3,8]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	pmf := decodeJSON[map[string][]float64](t, body)
	assert.InDeltaSlice(t, []float64{0.2, 0.5, 0.3}, pmf["pmf"], 1e-12)

	resp, body = do(t, http.MethodPost, base+"/cdf", `{"split_points":[3,8],"inclusive":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	cdf := decodeJSON[map[string][]float64](t, body)
	assert.InDeltaSlice(t, []float64{0.3, 0.8, 1}, cdf["cdf"], 1e-12)

	resp, body = do(t, http.MethodPost, base+"/bounds", `{"rank":0.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"rank":0.5,"lower":0.5,"upper":0.5}`, string(body))

	resp, body = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	summary := decodeJSON[service.Summary](t, body)
	assert.Equal(t, uint64(10), summary.N)
	assert.Equal(t, testK, summary.K)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/sketches", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"sketches":["latency"]}`, string(body))
}

func TestServer_SnapshotMerge(t *testing.T) {
	t.Parallel()

	ts := newServer(t, nil)

	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/sketches/a/update", `{"values":[1,2,3]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, snap := do(t, http.MethodGet, ts.URL+"/v1/sketches/a/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))

	sk, err := req.Deserialize[float64](snap, req.FloatOrder[float64]{}, req.Float64Serializer{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sk.N())

	resp, body := do(t, http.MethodPut, ts.URL+"/v1/sketches/b/merge", string(snap))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"name":"b","n":3}`, string(body))

	resp, body = do(t, http.MethodPut, ts.URL+"/v1/sketches/b/merge", string(snap))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"name":"b","n":6}`, string(body))

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/sketches/a", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/sketches/a", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ErrorMapping(t *testing.T) {
	t.Parallel()

	ts := newServer(t, nil)

	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/sketches/latency/update", `{"values":[1,2,3]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	other, err := req.NewFloat64(testK*2, true)
	require.NoError(t, err)
	other.Update(1)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown_sketch", method: http.MethodPost, path: "/v1/sketches/missing/quantiles", body: `{"ranks":[0.5]}`, want: http.StatusNotFound},
		{name: "malformed_json", method: http.MethodPost, path: "/v1/sketches/latency/update", body: `{"values":`, want: http.StatusBadRequest},
		{name: "schema_violation", method: http.MethodPost, path: "/v1/sketches/latency/quantiles", body: `{"ranks":[1.5]}`, want: http.StatusBadRequest},
		{name: "empty_values", method: http.MethodPost, path: "/v1/sketches/latency/update", body: `{"values":[]}`, want: http.StatusBadRequest},
		{name: "unknown_field", method: http.MethodPost, path: "/v1/sketches/latency/update", body: `{"values":[1],"x":1}`, want: http.StatusBadRequest},
		{name: "bad_split_points", method: http.MethodPost, path: "/v1/sketches/latency/cdf", body: `{"split_points":[2,1]}`, want: http.StatusBadRequest},
		{name: "bad_std_dev", method: http.MethodPost, path: "/v1/sketches/latency/bounds", body: `{"rank":0.5,"num_std_dev":4}`, want: http.StatusBadRequest},
		{name: "corrupt_merge", method: http.MethodPut, path: "/v1/sketches/latency/merge", body: "garbage", want: http.StatusBadRequest},
		{name: "incompatible_merge", method: http.MethodPut, path: "/v1/sketches/latency/merge", body: string(other.Serialize(req.Float64Serializer{})), want: http.StatusConflict},
		{name: "invalid_name", method: http.MethodPost, path: "/v1/sketches/.hidden/update", body: `{"values":[1]}`, want: http.StatusBadRequest},
		{name: "body_too_large", method: http.MethodPost, path: "/v1/sketches/latency/update", body: `{"values":[` + strings.Repeat("1,", testMaxBody) + `1]}`, want: http.StatusRequestEntityTooLarge},
		{name: "wrong_method", method: http.MethodGet, path: "/v1/sketches/latency/update", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			require.Equal(t, tt.want, resp.StatusCode, string(body))

			if tt.want != http.StatusMethodNotAllowed {
				errBody := decodeJSON[map[string]string](t, body)
				assert.NotEmpty(t, errBody["error"])
				assert.Equal(t, resp.Header.Get(httpapi.HeaderRequestID), errBody["request_id"])
			}
		})
	}
}

func TestServer_EmptySketchIsUnprocessable(t *testing.T) {
	t.Parallel()

	ts := newServer(t, nil)

	// JSON has no NaN, so an empty sketch only arises from a merge of an empty snapshot.
	empty, err := req.NewFloat64(testK, true)
	require.NoError(t, err)

	resp, _ := do(t, http.MethodPut, ts.URL+"/v1/sketches/empty/merge", string(empty.Serialize(req.Float64Serializer{})))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/sketches/empty/quantiles", `{"ranks":[0.5]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	t.Parallel()

	ts := newServer(t, nil)

	hr, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/v1/sketches/missing", http.NoBody)
	require.NoError(t, err)
	hr.Header.Set(httpapi.HeaderRequestID, "req-123")

	resp, err := http.DefaultClient.Do(hr)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(httpapi.HeaderRequestID))
}

func TestServer_FlushAndHealth(t *testing.T) {
	t.Parallel()

	store, err := persist.NewFileStore(t.TempDir(), persist.SnappyCodec{})
	require.NoError(t, err)

	ts := newServer(t, store)

	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/sketches/latency/update", `{"values":[1,2,3]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/flush", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"flushed":1}`, string(body))

	data, err := store.Get(context.Background(), "latency")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{1, 17}))

	resp, _ = do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
