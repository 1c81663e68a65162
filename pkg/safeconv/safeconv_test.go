package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/reqsketch/pkg/safeconv"
)

func TestMustUint64ToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, safeconv.MustUint64ToInt(0))
	assert.Equal(t, 42, safeconv.MustUint64ToInt(42))
	assert.Equal(t, math.MaxInt, safeconv.MustUint64ToInt(math.MaxInt))

	assert.PanicsWithValue(t, "safeconv: 9223372036854775808 out of int range", func() {
		safeconv.MustUint64ToInt(math.MaxInt + 1)
	})
}

func TestMustIntToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), safeconv.MustIntToUint64(0))
	assert.Equal(t, uint64(42), safeconv.MustIntToUint64(42))

	assert.PanicsWithValue(t, "safeconv: -1 out of uint64 range", func() {
		safeconv.MustIntToUint64(-1)
	})
}

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input int
		want  uint32
		panic string
	}{
		{name: "zero", input: 0, want: 0},
		{name: "small", input: 42, want: 42},
		{name: "max", input: math.MaxUint32, want: math.MaxUint32},
		{name: "negative", input: -1, panic: "safeconv: -1 out of uint32 range"},
		{name: "too_large", input: math.MaxUint32 + 1, panic: "safeconv: 4294967296 out of uint32 range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.panic != "" {
				assert.PanicsWithValue(t, tt.panic, func() { safeconv.MustIntToUint32(tt.input) })

				return
			}

			assert.Equal(t, tt.want, safeconv.MustIntToUint32(tt.input))
		})
	}
}
