// Package hashutil provides the splitmix64 mixing function and a small
// splitmix64 generator used as the random-bit source for randomized sketches.
//
// The finalizer is the one by Vigna (2014) and gives full-avalanche mixing
// across all 64 bits.
package hashutil

// Splitmix64 constants.
const (
	// BaseSeed is the seed used when a caller asks for a deterministic stream
	// without supplying one.
	BaseSeed = 0x517cc1b727220a95

	mixShift1 = 30
	mixMul1   = 0xbf58476d1ce4e5b9
	mixShift2 = 27
	mixMul2   = 0x94d049bb133111eb
	mixShift3 = 31

	// increment is the golden-ratio-derived state advance.
	increment = 0x9e3779b97f4a7c15
)

// Mix64 applies the splitmix64 finalizer. It does not advance any state.
func Mix64(v uint64) uint64 {
	v ^= v >> mixShift1
	v *= mixMul1
	v ^= v >> mixShift2
	v *= mixMul2
	v ^= v >> mixShift3

	return v
}

// Rand is a splitmix64 pseudo-random generator. Not safe for concurrent use.
type Rand struct {
	state uint64
}

// NewRand returns a generator whose stream is fully determined by seed.
func NewRand(seed uint64) *Rand {
	return &Rand{state: seed}
}

// Uint64 advances the generator and returns the next 64 random bits.
func (r *Rand) Uint64() uint64 {
	r.state += increment

	return Mix64(r.state)
}

// Split returns a new generator seeded from this one's stream. The two
// generators produce unrelated sequences afterwards.
func (r *Rand) Split() *Rand {
	return NewRand(Mix64(r.Uint64() ^ BaseSeed))
}
