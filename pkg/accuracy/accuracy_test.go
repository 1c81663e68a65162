package accuracy_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/reqsketch/pkg/accuracy"
)

const (
	evalK      = 12
	evalN      = 3000
	evalTrials = 16

	// Ceiling on the trial-mean error, in units of RSE.
	meanSigmas = 3.0
)

func baseConfig() accuracy.Config {
	return accuracy.Config{
		K:           evalK,
		HRA:         true,
		N:           evalN,
		Trials:      evalTrials,
		Seed:        42,
		Ranks:       []float64{0.1, 0.5, 0.9},
		Parallelism: 4,
	}
}

func TestEvaluate_Shape(t *testing.T) {
	t.Parallel()

	results, err := accuracy.Evaluate(context.Background(), baseConfig())
	require.NoError(t, err)
	require.Len(t, results, len(accuracy.AllOrders))

	for i, res := range results {
		assert.Equal(t, accuracy.AllOrders[i], res.Order)
		assert.Equal(t, evalK, res.K)
		assert.Equal(t, evalN, res.N)
		assert.Equal(t, evalTrials, res.Trials)
		require.Len(t, res.Ranks, 3)

		for _, rr := range res.Ranks {
			assert.GreaterOrEqual(t, rr.StdDev, 0.0)
			assert.GreaterOrEqual(t, rr.MaxAbsError, math.Abs(rr.MeanError))
			assert.GreaterOrEqual(t, rr.WithinRSE, 0.0)
			assert.LessOrEqual(t, rr.WithinRSE, 1.0)

			if rr.RSE > 0 {
				assert.LessOrEqual(t, math.Abs(rr.MeanError), meanSigmas*rr.RSE,
					"order=%s rank=%v", res.Order, rr.Rank)
			}
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Orders = []accuracy.Order{accuracy.OrderShuffled}

	first, err := accuracy.Evaluate(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Parallelism = 1

	second, err := accuracy.Evaluate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluate_DefaultRanks(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Ranks = nil
	cfg.Trials = 2
	cfg.Orders = []accuracy.Order{accuracy.OrderSorted}

	results, err := accuracy.Evaluate(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Ranks, len(accuracy.DefaultRanks))
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*accuracy.Config)
	}{
		{name: "zero_n", mutate: func(c *accuracy.Config) { c.N = 0 }},
		{name: "zero_trials", mutate: func(c *accuracy.Config) { c.Trials = 0 }},
		{name: "rank_above_one", mutate: func(c *accuracy.Config) { c.Ranks = []float64{1.5} }},
		{name: "nan_rank", mutate: func(c *accuracy.Config) { c.Ranks = []float64{math.NaN()} }},
		{name: "unknown_order", mutate: func(c *accuracy.Config) { c.Orders = []accuracy.Order{"zigzag"} }},
		{name: "bad_k", mutate: func(c *accuracy.Config) { c.K = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig()
			tt.mutate(&cfg)

			_, err := accuracy.Evaluate(context.Background(), cfg)
			require.ErrorIs(t, err, accuracy.ErrInvalidConfig)
		})
	}
}

func TestEvaluate_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := accuracy.Evaluate(ctx, baseConfig())
	require.ErrorIs(t, err, context.Canceled)
}
