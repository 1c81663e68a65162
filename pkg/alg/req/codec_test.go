package req_test

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
)

const codecStreamN = 5_000

var probeRanks = []float64{0, 0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99, 1}

func collect[T any](sk *req.Sketch[T]) ([]T, []uint64) {
	var (
		items   []T
		weights []uint64
	)

	for item, w := range sk.All() {
		items = append(items, item)
		weights = append(weights, w)
	}

	return items, weights
}

func assertQueryEquivalent[T any](t *testing.T, want, got *req.Sketch[T], probes []T) {
	t.Helper()

	assert.Equal(t, want.K(), got.K())
	assert.Equal(t, want.IsHRA(), got.IsHRA())
	assert.Equal(t, want.N(), got.N())
	assert.Equal(t, want.NumLevels(), got.NumLevels())
	assert.Equal(t, want.NumRetained(), got.NumRetained())

	wantItems, wantWeights := collect(want)
	gotItems, gotWeights := collect(got)
	assert.Equal(t, wantItems, gotItems)
	assert.Equal(t, wantWeights, gotWeights)

	wantMin, _ := want.MinItem()
	gotMin, _ := got.MinItem()
	assert.Equal(t, wantMin, gotMin)

	wantMax, _ := want.MaxItem()
	gotMax, _ := got.MaxItem()
	assert.Equal(t, wantMax, gotMax)

	for _, inclusive := range []bool{true, false} {
		for _, r := range probeRanks {
			wq, err := want.Quantile(r, inclusive)
			require.NoError(t, err)

			gq, err := got.Quantile(r, inclusive)
			require.NoError(t, err)
			assert.Equal(t, wq, gq)
		}

		for _, p := range probes {
			wr, err := want.Rank(p, inclusive)
			require.NoError(t, err)

			gr, err := got.Rank(p, inclusive)
			require.NoError(t, err)
			assert.Equal(t, wr, gr)
		}
	}
}

func TestSerialize_RoundTripFloat64(t *testing.T) {
	t.Parallel()

	for _, hra := range []bool{true, false} {
		rng := rand.New(rand.NewPCG(5, 6))
		sk := newFloatSketch(t, scenarioK, hra)

		for range codecStreamN {
			sk.Update(rng.ExpFloat64())
		}

		data := sk.Serialize(req.Float64Serializer{})

		got, err := req.Deserialize[float64](data, req.FloatOrder[float64]{}, req.Float64Serializer{})
		require.NoError(t, err)

		assertQueryEquivalent(t, sk, got, []float64{0.01, 0.5, 1, 2, 5})

		// The decoded sketch keeps accepting updates.
		got.Update(1)
		assert.Equal(t, got.N(), got.TotalWeight())
	}
}

func TestSerialize_RoundTripFloat32(t *testing.T) {
	t.Parallel()

	sk, err := req.NewFloat32(8, true, req.WithSeed(testSeed))
	require.NoError(t, err)

	for i := range codecStreamN {
		sk.Update(float32(i) / 3)
	}

	got, err := req.Deserialize[float32](sk.Serialize(req.Float32Serializer{}), req.FloatOrder[float32]{}, req.Float32Serializer{})
	require.NoError(t, err)

	assertQueryEquivalent(t, sk, got, []float32{1, 100, 1000})
}

func TestSerialize_RoundTripInt64(t *testing.T) {
	t.Parallel()

	sk := scenarioSketch(t)

	got, err := req.Deserialize[int64](sk.Serialize(req.Int64Serializer{}), req.NaturalOrder[int64]{}, req.Int64Serializer{})
	require.NoError(t, err)

	assertQueryEquivalent(t, sk, got, []int64{-1, 1, 500, 1000, 2000})
}

func TestSerialize_RoundTripInt32(t *testing.T) {
	t.Parallel()

	sk, err := req.NewOrdered[int32](scenarioK, false, req.WithSeed(testSeed))
	require.NoError(t, err)

	for i := int32(codecStreamN); i > 0; i-- {
		sk.Update(i)
	}

	got, err := req.Deserialize[int32](sk.Serialize(req.Int32Serializer{}), req.NaturalOrder[int32]{}, req.Int32Serializer{})
	require.NoError(t, err)

	assertQueryEquivalent(t, sk, got, []int32{1, 2500, 4999})
}

func TestSerialize_RoundTripString(t *testing.T) {
	t.Parallel()

	sk, err := req.NewOrdered[string](scenarioK, true, req.WithSeed(testSeed))
	require.NoError(t, err)

	for i := range codecStreamN {
		sk.Update(fmt.Sprintf("item-%05d", i))
	}

	got, err := req.Deserialize[string](sk.Serialize(req.StringSerializer{}), req.NaturalOrder[string]{}, req.StringSerializer{})
	require.NoError(t, err)

	assertQueryEquivalent(t, sk, got, []string{"", "item-00100", "item-02500", "zzz"})
}

func TestSerialize_Empty(t *testing.T) {
	t.Parallel()

	sk := newInt64Sketch(t, 20, false)
	data := sk.Serialize(req.Int64Serializer{})
	assert.Len(t, data, 8)

	got, err := req.Deserialize[int64](data, req.NaturalOrder[int64]{}, req.Int64Serializer{})
	require.NoError(t, err)

	assert.True(t, got.IsEmpty())
	assert.Equal(t, 20, got.K())
	assert.False(t, got.IsHRA())
}

func TestDeserialize_Corrupt(t *testing.T) {
	t.Parallel()

	valid := scenarioSketch(t).Serialize(req.Int64Serializer{})

	mutate := func(fn func([]byte) []byte) []byte {
		return fn(slices.Clone(valid))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "short_header", data: valid[:5]},
		{name: "unknown_version", data: mutate(func(b []byte) []byte { b[0] = 9; return b })},
		{name: "unknown_family", data: mutate(func(b []byte) []byte { b[1] = 3; return b })},
		{name: "odd_k", data: mutate(func(b []byte) []byte { b[4] = 13; return b })},
		{name: "zero_levels", data: mutate(func(b []byte) []byte { b[3] = 0; return b })},
		{name: "truncated_body", data: valid[:len(valid)-1]},
		{name: "truncated_levels", data: valid[:40]},
		{name: "trailing_bytes", data: append(slices.Clone(valid), 0)},
		{name: "n_mismatch", data: mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[8:], scenarioN+1)

			return b
		})},
		{name: "lg_weight_mismatch", data: mutate(func(b []byte) []byte {
			// First level header follows n, min and max.
			b[8+8+8+8] = 1

			return b
		})},
		{name: "min_above_max", data: mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[16:], 5000)

			return b
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := req.Deserialize[int64](tt.data, req.NaturalOrder[int64]{}, req.Int64Serializer{})
			require.ErrorIs(t, err, req.ErrCorruptState)
		})
	}
}

func TestDeserialize_UnsortedItems(t *testing.T) {
	t.Parallel()

	sk := newInt64Sketch(t, scenarioK, true)
	sk.UpdateMany(1, 2, 3)

	data := sk.Serialize(req.Int64Serializer{})

	// Layout: header 8, n 8, min 8, max 8, level header 20, items.
	itemsAt := 8 + 8 + 8 + 8 + 20
	binary.LittleEndian.PutUint64(data[itemsAt:], 3)
	binary.LittleEndian.PutUint64(data[itemsAt+16:], 1)

	_, err := req.Deserialize[int64](data, req.NaturalOrder[int64]{}, req.Int64Serializer{})
	require.ErrorIs(t, err, req.ErrCorruptState)
}
