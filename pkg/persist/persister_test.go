package persist_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
)

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	store, err := persist.NewFileStore(t.TempDir(), persist.LZ4Codec{})
	require.NoError(t, err)

	p := persist.NewPersister(store,
		func(v int) ([]byte, error) { return []byte(strconv.Itoa(v)), nil },
		func(b []byte) (int, error) { return strconv.Atoi(string(b)) },
	)

	ctx := context.Background()

	require.NoError(t, p.Save(ctx, "answer", 42))

	got, err := p.Load(ctx, "answer")
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = p.Load(ctx, "missing")
	require.ErrorIs(t, err, persist.ErrNotFound)

	assert.Same(t, store, p.Store())
}
