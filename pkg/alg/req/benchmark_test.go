package req_test

import (
	"math/rand/v2"
	"testing"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
)

const (
	benchK        = 12
	benchPreloadN = 100_000
)

func newBenchSketch(b *testing.B, n int) *req.Sketch[float64] {
	b.Helper()

	sk, err := req.NewFloat64(benchK, true, req.WithSeed(testSeed))
	if err != nil {
		b.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(1, 1))
	for range n {
		sk.Update(rng.Float64())
	}

	return sk
}

// BenchmarkUpdate measures single-item ingestion throughput.
func BenchmarkUpdate(b *testing.B) {
	sk := newBenchSketch(b, 0)
	rng := rand.New(rand.NewPCG(2, 2))

	b.ResetTimer()

	for range b.N {
		sk.Update(rng.Float64())
	}
}

// BenchmarkRank measures rank queries against a loaded sketch.
func BenchmarkRank(b *testing.B) {
	sk := newBenchSketch(b, benchPreloadN)

	b.ResetTimer()

	for i := range b.N {
		_, _ = sk.Rank(float64(i%100)/100, true)
	}
}

// BenchmarkQuantile includes building the sorted view.
func BenchmarkQuantile(b *testing.B) {
	sk := newBenchSketch(b, benchPreloadN)

	b.ResetTimer()

	for range b.N {
		_, _ = sk.Quantile(0.99, true)
	}
}

// BenchmarkMerge measures merging two loaded sketches.
func BenchmarkMerge(b *testing.B) {
	src := newBenchSketch(b, benchPreloadN)
	dst := newBenchSketch(b, benchPreloadN)

	b.ResetTimer()

	for range b.N {
		cp := dst.Clone()
		if err := cp.Merge(src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSerialize measures encoding a loaded sketch.
func BenchmarkSerialize(b *testing.B) {
	sk := newBenchSketch(b, benchPreloadN)

	b.ResetTimer()

	for range b.N {
		_ = sk.Serialize(req.Float64Serializer{})
	}
}
