// Package accuracy measures the rank error of REQ sketches against exact
// ranks and reports it next to the analytic relative standard error.
package accuracy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/stats"
	"github.com/Sumatoshi-tech/reqsketch/pkg/safeconv"
)

// ErrInvalidConfig is returned for configurations that cannot be evaluated.
var ErrInvalidConfig = errors.New("accuracy: invalid config")

// Order is the arrival order of the evaluated stream.
type Order string

// Stream orders.
const (
	OrderSorted   Order = "sorted"
	OrderReversed Order = "reversed"
	OrderShuffled Order = "shuffled"
)

// AllOrders lists every stream order.
var AllOrders = []Order{OrderSorted, OrderReversed, OrderShuffled}

// DefaultRanks are probed when Config.Ranks is empty.
var DefaultRanks = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99}

// Config parameterizes an evaluation.
type Config struct {
	K      int
	HRA    bool
	N      int
	Trials int
	Seed   uint64

	Ranks  []float64
	Orders []Order

	// Parallelism bounds concurrent trials. Zero uses GOMAXPROCS.
	Parallelism int
}

// RankResult aggregates the signed rank error at one probe rank.
type RankResult struct {
	Rank        float64 `json:"rank"          yaml:"rank"`
	RSE         float64 `json:"rse"           yaml:"rse"`
	MeanError   float64 `json:"mean_error"    yaml:"mean_error"`
	StdDev      float64 `json:"std_dev"       yaml:"std_dev"`
	MaxAbsError float64 `json:"max_abs_error" yaml:"max_abs_error"`

	// WithinRSE is the fraction of trials whose error is at most one RSE.
	WithinRSE float64 `json:"within_rse" yaml:"within_rse"`
}

// Result is the evaluation of one stream order.
type Result struct {
	Order  Order        `json:"order"  yaml:"order"`
	K      int          `json:"k"      yaml:"k"`
	HRA    bool         `json:"hra"    yaml:"hra"`
	N      int          `json:"n"      yaml:"stream_length"`
	Trials int          `json:"trials" yaml:"trials"`
	Ranks  []RankResult `json:"ranks"  yaml:"ranks"`
}

func (c *Config) normalize() error {
	if c.N <= 0 {
		return fmt.Errorf("%w: stream length %d", ErrInvalidConfig, c.N)
	}

	if c.Trials <= 0 {
		return fmt.Errorf("%w: trial count %d", ErrInvalidConfig, c.Trials)
	}

	if len(c.Ranks) == 0 {
		c.Ranks = DefaultRanks
	}

	for _, r := range c.Ranks {
		if !(r >= 0 && r <= 1) {
			return fmt.Errorf("%w: rank %v outside [0, 1]", ErrInvalidConfig, r)
		}
	}

	if len(c.Orders) == 0 {
		c.Orders = AllOrders
	}

	for _, o := range c.Orders {
		if !slices.Contains(AllOrders, o) {
			return fmt.Errorf("%w: unknown order %q", ErrInvalidConfig, o)
		}
	}

	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}

	_, err := req.NewFloat64(c.K, c.HRA)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Evaluate runs cfg.Trials independent sketches per order and aggregates
// their rank errors. Results are deterministic for a given seed.
func Evaluate(ctx context.Context, cfg Config) ([]Result, error) {
	err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	sorted := make([]float64, cfg.N)
	for i := range sorted {
		sorted[i] = float64(i)
	}

	probes := make([]float64, len(cfg.Ranks))
	truth := make([]float64, len(cfg.Ranks))

	for i, r := range cfg.Ranks {
		probes[i] = stats.ExactQuantile(sorted, r, false)
		truth[i] = stats.ExactRank(sorted, probes[i], false)
	}

	results := make([]Result, 0, len(cfg.Orders))

	for _, order := range cfg.Orders {
		res, err := evaluateOrder(ctx, cfg, order, sorted, probes, truth)
		if err != nil {
			return nil, err
		}

		results = append(results, res)
	}

	return results, nil
}

func evaluateOrder(ctx context.Context, cfg Config, order Order, sorted, probes, truth []float64) (Result, error) {
	// errs[rank][trial]
	errs := make([][]float64, len(probes))
	for i := range errs {
		errs[i] = make([]float64, cfg.Trials)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallelism)

	for trial := range cfg.Trials {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			seed := cfg.Seed + uint64(trial)

			sk, err := req.NewFloat64(cfg.K, cfg.HRA, req.WithSeed(seed))
			if err != nil {
				return err
			}

			feed(sk, order, sorted, seed)

			view, err := sk.View()
			if err != nil {
				return err
			}

			for i, p := range probes {
				errs[i][trial] = view.Rank(p, false) - truth[i]
			}

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return Result{}, fmt.Errorf("evaluate %s: %w", order, err)
	}

	n := safeconv.MustIntToUint64(cfg.N)
	res := Result{
		Order:  order,
		K:      cfg.K,
		HRA:    cfg.HRA,
		N:      cfg.N,
		Trials: cfg.Trials,
		Ranks:  make([]RankResult, len(probes)),
	}

	for i, r := range cfg.Ranks {
		mean, stddev := stats.MeanStdDev(errs[i])
		rse := req.RSE(cfg.K, r, cfg.HRA, n)

		within := 0
		for _, e := range errs[i] {
			if math.Abs(e) <= rse {
				within++
			}
		}

		res.Ranks[i] = RankResult{
			Rank:        r,
			RSE:         rse,
			MeanError:   mean,
			StdDev:      stddev,
			MaxAbsError: stats.MaxAbs(errs[i]),
			WithinRSE:   float64(within) / float64(cfg.Trials),
		}
	}

	return res, nil
}

func feed(sk *req.Sketch[float64], order Order, sorted []float64, seed uint64) {
	switch order {
	case OrderSorted:
		sk.UpdateMany(sorted...)
	case OrderReversed:
		for i := len(sorted) - 1; i >= 0; i-- {
			sk.Update(sorted[i])
		}
	case OrderShuffled:
		rng := rand.New(rand.NewPCG(seed, uint64(len(sorted))))
		for _, i := range rng.Perm(len(sorted)) {
			sk.Update(sorted[i])
		}
	}
}
