package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/reqsketch/pkg/ingest"
)

func TestParseValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []float64
	}{
		{name: "single", input: "42", want: []float64{42}},
		{name: "commas", input: "1,2,3", want: []float64{1, 2, 3}},
		{name: "whitespace", input: "1 2\t3\n4", want: []float64{1, 2, 3, 4}},
		{name: "mixed", input: " 1.5, -2e3 ,\n7 ", want: []float64{1.5, -2000, 7}},
		{name: "empty", input: "", want: []float64{}},
		{name: "separators_only", input: " , ,\n", want: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ingest.ParseValues([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValues_InvalidToken(t *testing.T) {
	t.Parallel()

	_, err := ingest.ParseValues([]byte("1, two, 3"))
	require.ErrorIs(t, err, ingest.ErrInvalidValue)
	assert.Contains(t, err.Error(), `"two"`)
}
