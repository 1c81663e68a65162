package req_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
)

const (
	mergeK          = 50
	mergeN          = 10_000
	mergePartitions = 4

	// Per-rank ceiling and mean ceiling, in units of RSE.
	mergeMaxSigmas  = 4.0
	mergeMeanSigmas = 2.0
)

func TestMerge_Incompatible(t *testing.T) {
	t.Parallel()

	a := newFloatSketch(t, 12, true)
	b := newFloatSketch(t, 20, true)
	c := newFloatSketch(t, 12, false)

	a.Update(1)
	b.Update(2)
	c.Update(3)

	require.ErrorIs(t, a.Merge(b), req.ErrIncompatibleSketch)
	require.ErrorIs(t, a.Merge(c), req.ErrIncompatibleSketch)
	require.ErrorIs(t, a.Merge(nil), req.ErrInvalidArgument)

	assert.Equal(t, uint64(1), a.N())
}

func TestMerge_EmptyOperandIsNoop(t *testing.T) {
	t.Parallel()

	sk := scenarioSketch(t)
	before := sk.LevelSizes()

	require.NoError(t, sk.Merge(newInt64Sketch(t, scenarioK, true)))

	assert.Equal(t, uint64(scenarioN), sk.N())
	assert.Equal(t, before, sk.LevelSizes())
}

func TestMerge_IntoEmptyCopies(t *testing.T) {
	t.Parallel()

	src := scenarioSketch(t)
	dst := newInt64Sketch(t, scenarioK, true)

	require.NoError(t, dst.Merge(src))

	assert.Equal(t, src.N(), dst.N())
	assert.Equal(t, src.LevelSizes(), dst.LevelSizes())

	for _, item := range []int64{1, 250, 500, 999} {
		want, err := src.Rank(item, true)
		require.NoError(t, err)

		got, err := dst.Rank(item, true)
		require.NoError(t, err)
		assert.InDelta(t, want, got, floatTolerance)
	}

	// The copy owns its buffers.
	src.Update(scenarioN + 1)
	assert.Equal(t, uint64(scenarioN), dst.N())
}

func TestMerge_Self(t *testing.T) {
	t.Parallel()

	sk := scenarioSketch(t)
	require.NoError(t, sk.Merge(sk))

	assert.Equal(t, uint64(2*scenarioN), sk.N())
	assert.Equal(t, sk.N(), sk.TotalWeight())
	assert.True(t, sk.LevelsSorted())
}

func TestMerge_Extrema(t *testing.T) {
	t.Parallel()

	a := newInt64Sketch(t, scenarioK, false)
	b := newInt64Sketch(t, scenarioK, false)

	for i := int64(1); i <= 100; i++ {
		a.Update(i)
	}

	for i := int64(-5); i <= 50; i++ {
		b.Update(i)
	}

	require.NoError(t, a.Merge(b))

	minItem, err := a.MinItem()
	require.NoError(t, err)
	assert.Equal(t, int64(-5), minItem)

	maxItem, err := a.MaxItem()
	require.NoError(t, err)
	assert.Equal(t, int64(100), maxItem)

	assert.Equal(t, uint64(156), a.N())
	assert.Equal(t, a.N(), a.TotalWeight())
}

func TestMerge_ManySmallSketches(t *testing.T) {
	t.Parallel()

	acc := newFloatSketch(t, 4, true)

	for part := range 200 {
		sk, err := req.NewFloat64(4, true, req.WithSeed(uint64(part)))
		require.NoError(t, err)

		for i := range 37 {
			sk.Update(float64(part*37 + i))
		}

		require.NoError(t, acc.Merge(sk))
		require.Equal(t, acc.N(), acc.TotalWeight())
		require.True(t, acc.LevelsSorted())
	}

	for h, size := range acc.LevelSizes() {
		assert.Less(t, size, acc.LevelCapacity(h), "level %d over capacity", h)
	}
}

func TestMerge_RepeatedSelfMergeStaysUnderCapacity(t *testing.T) {
	t.Parallel()

	sk := newFloatSketch(t, mergeK, true)
	for i := range 1000 {
		sk.Update(float64(i))
	}

	for range 20 {
		require.NoError(t, sk.Merge(sk))

		for h, size := range sk.LevelSizes() {
			require.Less(t, size, sk.LevelCapacity(h), "level %d over capacity", h)
		}
	}

	assert.Equal(t, uint64(1000)<<20, sk.N())
	assert.Equal(t, sk.N(), sk.TotalWeight())
	assert.True(t, sk.LevelsSorted())
}

func TestMerge_PartitionAccuracy(t *testing.T) {
	t.Parallel()

	ranks := []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.99}

	for _, hra := range []bool{true, false} {
		rng := rand.New(rand.NewPCG(11, 13))
		values := rng.Perm(mergeN)

		acc, err := req.NewFloat64(mergeK, hra, req.WithSeed(1))
		require.NoError(t, err)

		for p := range mergePartitions {
			part, err := req.NewFloat64(mergeK, hra, req.WithSeed(uint64(p+2)))
			require.NoError(t, err)

			for i := p; i < len(values); i += mergePartitions {
				part.Update(float64(values[i]))
			}

			require.NoError(t, acc.Merge(part))
		}

		require.Equal(t, uint64(mergeN), acc.N())
		require.Equal(t, acc.N(), acc.TotalWeight())

		sigmaSum := 0.0

		for _, r := range ranks {
			// Values are 0..N-1, so the true exclusive rank of r*N is r.
			est, err := acc.Rank(r*mergeN, false)
			require.NoError(t, err)

			rse := req.RSE(mergeK, r, hra, mergeN)
			if rse == 0 {
				assert.InDelta(t, r, est, floatTolerance, "hra=%t rank=%v", hra, r)

				continue
			}

			sigmas := (est - r) / rse
			if sigmas < 0 {
				sigmas = -sigmas
			}

			assert.LessOrEqual(t, sigmas, mergeMaxSigmas, "hra=%t rank=%v", hra, r)
			sigmaSum += sigmas
		}

		assert.LessOrEqual(t, sigmaSum/float64(len(ranks)), mergeMeanSigmas, "hra=%t", hra)
	}
}
