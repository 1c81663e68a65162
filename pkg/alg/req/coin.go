package req

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/internal/hashutil"
)

// CoinSource supplies the fair coin flips that decide which half of a
// compaction window is promoted to the next level.
type CoinSource interface {
	Flip() bool
}

// ForkableCoinSource is a CoinSource that can derive an independent source.
// Clone uses Fork so the copy never shares generator state with the original.
type ForkableCoinSource interface {
	CoinSource
	Fork() CoinSource
}

const bitsPerDraw = 64

// SeededCoins is a splitmix64-backed CoinSource. Each 64-bit draw serves 64
// flips. Not safe for concurrent use.
type SeededCoins struct {
	rng  *hashutil.Rand
	bits uint64
	left int
}

// NewSeededCoins returns a deterministic coin source.
func NewSeededCoins(seed uint64) *SeededCoins {
	return &SeededCoins{rng: hashutil.NewRand(seed)}
}

// Flip returns the next coin.
func (c *SeededCoins) Flip() bool {
	if c.left == 0 {
		c.bits = c.rng.Uint64()
		c.left = bitsPerDraw
	}

	bit := c.bits&1 == 1
	c.bits >>= 1
	c.left--

	return bit
}

// Fork returns a source seeded from this source's stream.
func (c *SeededCoins) Fork() CoinSource {
	return &SeededCoins{rng: c.rng.Split()}
}

// randomSeed draws a seed from the operating system, falling back to the clock.
func randomSeed() uint64 {
	var buf [8]byte

	_, err := rand.Read(buf[:])
	if err != nil {
		return hashutil.Mix64(uint64(time.Now().UnixNano()) ^ hashutil.BaseSeed) //nolint:gosec // nanoseconds are non-negative.
	}

	return binary.LittleEndian.Uint64(buf[:])
}
