// Package commands implements CLI command handlers for reqsketch.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
)

// Item types selectable with --type.
const (
	typeFloat  = "float"
	typeInt    = "int"
	typeString = "string"
)

var (
	// ErrUnknownType is returned for an unsupported --type value.
	ErrUnknownType = errors.New("unknown item type (want float, int or string)")
	// ErrInvalidItem indicates an input token that does not parse as the item type.
	ErrInvalidItem = errors.New("invalid item")
)

const scanBufferSize = 1 << 20

// domain bundles what the CLI needs to handle one item type.
type domain[T any] struct {
	cmp   req.Comparator[T]
	serde req.Serializer[T]
	parse func(string) (T, error)

	// lines splits input into whole lines instead of whitespace separated words.
	lines bool
}

func floatDomain() domain[float64] {
	return domain[float64]{
		cmp:   req.FloatOrder[float64]{},
		serde: req.Float64Serializer{},
		parse: func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
	}
}

func intDomain() domain[int64] {
	return domain[int64]{
		cmp:   req.NaturalOrder[int64]{},
		serde: req.Int64Serializer{},
		parse: func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
	}
}

func stringDomain() domain[string] {
	return domain[string]{
		cmp:   req.NaturalOrder[string]{},
		serde: req.StringSerializer{},
		parse: func(s string) (string, error) { return s, nil },
		lines: true,
	}
}

func unknownType(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownType, name)
}

func (d domain[T]) newSketch(k int, hra bool, seed uint64) (*req.Sketch[T], error) {
	var opts []req.Option
	if seed != 0 {
		opts = append(opts, req.WithSeed(seed))
	}

	return req.New(k, hra, d.cmp, opts...)
}

// load reads a sketch file and reports its serialized size.
func (d domain[T]) load(path string) (*req.Sketch[T], int, error) {
	data, err := persist.LoadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	sk, err := req.Deserialize(data, d.cmp, d.serde)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	return sk, len(data), nil
}

// save writes sk to path and returns the serialized size before compression.
func (d domain[T]) save(path string, sk *req.Sketch[T]) (int, error) {
	data := sk.Serialize(d.serde)

	err := persist.SaveFile(path, data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	return len(data), nil
}

// parseAll parses command-line items.
func (d domain[T]) parseAll(raw []string) ([]T, error) {
	items := make([]T, 0, len(raw))

	for _, s := range raw {
		item, err := d.parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidItem, s, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// feed streams items from r into sk and returns how many it read.
func (d domain[T]) feed(r io.Reader, sk *req.Sketch[T]) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), scanBufferSize)

	if !d.lines {
		scanner.Split(bufio.ScanWords)
	}

	count := 0

	for scanner.Scan() {
		token := scanner.Text()
		if d.lines && token == "" {
			continue
		}

		item, err := d.parse(token)
		if err != nil {
			return count, fmt.Errorf("%w %q: %w", ErrInvalidItem, token, err)
		}

		sk.Update(item)
		count++
	}

	err := scanner.Err()
	if err != nil {
		return count, fmt.Errorf("read input: %w", err)
	}

	return count, nil
}

// evenSplits picks up to bins-1 distinct split points at evenly spaced ranks.
func (d domain[T]) evenSplits(sk *req.Sketch[T], bins int) ([]T, error) {
	if bins < 2 || sk.IsEmpty() {
		return nil, nil
	}

	ranks := make([]float64, 0, bins-1)
	for i := 1; i < bins; i++ {
		ranks = append(ranks, float64(i)/float64(bins))
	}

	splits, err := sk.Quantiles(ranks, true)
	if err != nil {
		return nil, err
	}

	return slices.CompactFunc(splits, func(a, b T) bool {
		return !d.cmp.Less(a, b) && !d.cmp.Less(b, a)
	}), nil
}
