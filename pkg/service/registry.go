// Package service keeps named float64 REQ sketches in memory for the HTTP,
// MCP and Kafka front ends and persists them through a persist.Store.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
)

// Sentinel errors.
var (
	ErrSketchNotFound = errors.New("service: sketch not found")
	ErrNoValues       = errors.New("service: no values")
	ErrNoStore        = errors.New("service: no store configured")
)

// Options configures a Registry.
type Options struct {
	// K and HRA parameterize every sketch the registry creates.
	K   int
	HRA bool

	// Seed makes compactions reproducible. Each sketch derives its own seed
	// from it and its name. Zero draws random coins.
	Seed uint64

	// Store persists sketches on Flush. Nil keeps everything in memory.
	Store persist.Store

	Logger  *slog.Logger
	Metrics *observability.SketchMetrics
}

type entry struct {
	mu    sync.RWMutex
	sk    *req.Sketch[float64]
	dirty bool
}

// Registry is a set of named float64 sketches safe for concurrent use.
// Queries on one sketch run in parallel; updates take that sketch exclusively.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	k    int
	hra  bool
	seed uint64

	persister *persist.Persister[*req.Sketch[float64]]
	logger    *slog.Logger
	metrics   *observability.SketchMetrics
}

// NewRegistry validates opts and returns an empty registry.
func NewRegistry(opts Options) (*Registry, error) {
	probe, err := req.NewFloat64(opts.K, opts.HRA)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		entries: make(map[string]*entry),
		k:       probe.K(),
		hra:     opts.HRA,
		seed:    opts.Seed,
		logger:  logger,
		metrics: opts.Metrics,
	}

	if opts.Store != nil {
		r.persister = persist.NewPersister(opts.Store, r.encode, r.decode)
	}

	return r, nil
}

// K returns the normalized k of the registry's sketches.
func (r *Registry) K() int { return r.k }

// IsHRA reports the accuracy mode of the registry's sketches.
func (r *Registry) IsHRA() bool { return r.hra }

func (r *Registry) encode(sk *req.Sketch[float64]) ([]byte, error) {
	return sk.Serialize(req.Float64Serializer{}), nil
}

func (r *Registry) decode(data []byte) (*req.Sketch[float64], error) {
	return req.Deserialize[float64](data, req.FloatOrder[float64]{}, req.Float64Serializer{})
}

func (r *Registry) options(name string) []req.Option {
	if r.seed == 0 {
		return nil
	}

	return []req.Option{req.WithSeed(r.seed ^ nameHash(name))}
}

func nameHash(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))

	return h.Sum64()
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSketchNotFound, name)
	}

	return e, nil
}

func (r *Registry) lookupOrCreate(name string) (*entry, error) {
	err := persist.ValidateName(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok = r.entries[name]; ok {
		return e, nil
	}

	sk, err := req.NewFloat64(r.k, r.hra, r.options(name)...)
	if err != nil {
		return nil, err
	}

	e = &entry{sk: sk}
	r.entries[name] = e

	r.logger.Debug("sketch created", "sketch", name, "k", r.k, "hra", r.hra)

	return e, nil
}

// Update feeds values into the named sketch, creating it on first use.
// NaN values are ignored. It returns the sketch's stream length afterwards.
func (r *Registry) Update(ctx context.Context, name string, values []float64) (uint64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}

	e, err := r.lookupOrCreate(name)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.sk.UpdateMany(values...)
	e.dirty = true
	n, retained := e.sk.N(), e.sk.NumRetained()
	e.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordUpdate(ctx, name, len(values), retained)
	}

	return n, nil
}

// Merge decodes a serialized float64 sketch and merges it into the named
// sketch, creating it on first use. It returns the stream length afterwards.
func (r *Registry) Merge(ctx context.Context, name string, data []byte) (uint64, error) {
	other, err := r.decode(data)
	if err != nil {
		return 0, err
	}

	e, err := r.lookupOrCreate(name)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	err = e.sk.Merge(other)
	if err == nil {
		e.dirty = true
	}
	n, retained := e.sk.N(), e.sk.NumRetained()
	e.mu.Unlock()

	if err != nil {
		return 0, err
	}

	if r.metrics != nil {
		r.metrics.RecordMerge(ctx, name, retained)
	}

	r.logger.DebugContext(ctx, "sketch merged", "sketch", name, "operand_n", other.N(), "n", n)

	return n, nil
}

// read runs fn under the named sketch's read lock. Empty sketches yield
// req.ErrEmptySketch so callers never see NaN answers.
func (r *Registry) read(name string, fn func(sk *req.Sketch[float64]) error) error {
	e, err := r.lookup(name)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.sk.IsEmpty() {
		return fmt.Errorf("%w: %s", req.ErrEmptySketch, name)
	}

	return fn(e.sk)
}

// Quantiles returns one quantile per normalized rank.
func (r *Registry) Quantiles(name string, ranks []float64, inclusive bool) ([]float64, error) {
	var out []float64

	err := r.read(name, func(sk *req.Sketch[float64]) error {
		view, err := sk.View()
		if err != nil {
			return err
		}

		out = make([]float64, len(ranks))
		for i, rank := range ranks {
			if out[i], err = view.Quantile(rank, inclusive); err != nil {
				return err
			}
		}

		return nil
	})

	return out, err
}

// Ranks returns the estimated normalized rank of each value.
func (r *Registry) Ranks(name string, values []float64, inclusive bool) ([]float64, error) {
	var out []float64

	err := r.read(name, func(sk *req.Sketch[float64]) error {
		out = make([]float64, len(values))
		for i, v := range values {
			rank, err := sk.Rank(v, inclusive)
			if err != nil {
				return err
			}

			out[i] = rank
		}

		return nil
	})

	return out, err
}

// PMF returns the probability mass of the intervals the split points define.
func (r *Registry) PMF(name string, splits []float64, inclusive bool) ([]float64, error) {
	var out []float64

	err := r.read(name, func(sk *req.Sketch[float64]) error {
		var err error

		out, err = sk.PMF(splits, inclusive)

		return err
	})

	return out, err
}

// CDF returns the cumulative distribution at the split points, ending with 1.
func (r *Registry) CDF(name string, splits []float64, inclusive bool) ([]float64, error) {
	var out []float64

	err := r.read(name, func(sk *req.Sketch[float64]) error {
		var err error

		out, err = sk.CDF(splits, inclusive)

		return err
	})

	return out, err
}

// RankBounds is an approximate confidence interval around a rank.
type RankBounds struct {
	Rank  float64 `json:"rank"  yaml:"rank"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Bounds returns the interval of numStdDev standard deviations around rank.
func (r *Registry) Bounds(name string, rank float64, numStdDev int) (RankBounds, error) {
	out := RankBounds{Rank: rank}

	err := r.read(name, func(sk *req.Sketch[float64]) error {
		var err error

		if out.Lower, err = sk.RankLowerBound(rank, numStdDev); err != nil {
			return err
		}

		out.Upper, err = sk.RankUpperBound(rank, numStdDev)

		return err
	})

	return out, err
}

// Summary describes one sketch.
type Summary struct {
	Name           string  `json:"name"            yaml:"name"`
	K              int     `json:"k"               yaml:"k"`
	HRA            bool    `json:"hra"             yaml:"hra"`
	N              uint64  `json:"n"               yaml:"stream_length"`
	NumRetained    int     `json:"num_retained"    yaml:"num_retained"`
	NumLevels      int     `json:"num_levels"      yaml:"num_levels"`
	EstimationMode bool    `json:"estimation_mode" yaml:"estimation_mode"`
	Min            float64 `json:"min"             yaml:"min"`
	Max            float64 `json:"max"             yaml:"max"`
}

// Summarize builds a Summary for any float64 sketch.
func Summarize(name string, sk *req.Sketch[float64]) Summary {
	s := Summary{
		Name:           name,
		K:              sk.K(),
		HRA:            sk.IsHRA(),
		N:              sk.N(),
		NumRetained:    sk.NumRetained(),
		NumLevels:      sk.NumLevels(),
		EstimationMode: sk.IsEstimationMode(),
	}

	// Errors cannot occur for the float domain; empty sketches report NaN,
	// which callers must not encode as JSON.
	s.Min, _ = sk.MinItem()
	s.Max, _ = sk.MaxItem()

	return s
}

// Summary returns the state of the named sketch.
func (r *Registry) Summary(name string) (Summary, error) {
	var out Summary

	err := r.read(name, func(sk *req.Sketch[float64]) error {
		out = Summarize(name, sk)

		return nil
	})

	return out, err
}

// Snapshot serializes the named sketch.
func (r *Registry) Snapshot(ctx context.Context, name string) ([]byte, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	data := e.sk.Serialize(req.Float64Serializer{})
	e.mu.RUnlock()

	if r.metrics != nil {
		r.metrics.RecordSerialized(ctx, name, len(data))
	}

	return data, nil
}

// Names lists the sketches in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.entries))
}

// Delete drops the named sketch from memory and from the store.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	_, ok := r.entries[name]
	delete(r.entries, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSketchNotFound, name)
	}

	if r.persister != nil {
		err := r.persister.Store().Delete(ctx, name)
		if err != nil {
			return fmt.Errorf("delete %s from store: %w", name, err)
		}
	}

	r.logger.InfoContext(ctx, "sketch deleted", "sketch", name)

	return nil
}

// Flush writes every sketch changed since the last flush to the store and
// returns how many were written. Without a store it does nothing.
func (r *Registry) Flush(ctx context.Context) (int, error) {
	if r.persister == nil {
		return 0, nil
	}

	r.mu.RLock()
	pending := make(map[string]*entry, len(r.entries))
	maps.Copy(pending, r.entries)
	r.mu.RUnlock()

	var (
		flushed int
		errs    []error
	)

	for _, name := range slices.Sorted(maps.Keys(pending)) {
		e := pending[name]

		e.mu.Lock()
		if !e.dirty {
			e.mu.Unlock()

			continue
		}

		clone := e.sk.Clone()
		e.dirty = false
		e.mu.Unlock()

		err := r.persister.Save(ctx, name, clone)
		if err != nil {
			e.mu.Lock()
			e.dirty = true
			e.mu.Unlock()

			errs = append(errs, fmt.Errorf("flush %s: %w", name, err))

			continue
		}

		flushed++
	}

	if flushed > 0 {
		r.logger.InfoContext(ctx, "sketches flushed", "count", flushed)
	}

	return flushed, errors.Join(errs...)
}

// Load restores every sketch in the store, replacing in-memory sketches of
// the same name. Sketches with another k or mode are skipped with a warning.
func (r *Registry) Load(ctx context.Context) (int, error) {
	if r.persister == nil {
		return 0, ErrNoStore
	}

	names, err := r.persister.Store().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored sketches: %w", err)
	}

	loaded := 0

	for _, name := range names {
		sk, err := r.persister.Load(ctx, name)
		if err != nil {
			return loaded, fmt.Errorf("load %s: %w", name, err)
		}

		if sk.K() != r.k || sk.IsHRA() != r.hra {
			r.logger.WarnContext(ctx, "skipping incompatible stored sketch",
				"sketch", name, "k", sk.K(), "hra", sk.IsHRA())

			continue
		}

		r.mu.Lock()
		r.entries[name] = &entry{sk: sk}
		r.mu.Unlock()

		loaded++
	}

	r.logger.InfoContext(ctx, "sketches loaded", "count", loaded)

	return loaded, nil
}

// Ready reports an error when the registry cannot reach its store.
func (r *Registry) Ready(ctx context.Context) error {
	if r.persister == nil {
		return nil
	}

	_, err := r.persister.Store().List(ctx)

	return err
}
