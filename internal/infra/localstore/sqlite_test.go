package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"pcbuilder/internal/cart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLite_LoadMissing(t *testing.T) {
	s, _ := openTemp(t)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, cart.ErrNoData)
}

func TestSQLite_SaveOverwrite(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Save(ctx, "k", []byte(`[1]`)))
	require.NoError(t, s.Save(ctx, "k", []byte(`[2]`)))

	v, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(v))
}

// ファイルを閉じて開き直してもカートが戻る
func TestSQLite_CartSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	store, err := cart.Open(ctx, s)
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, cart.Product{ID: 1, Name: "GPU", Price: 100}))
	require.NoError(t, store.AddItem(ctx, cart.Product{ID: 1, Name: "GPU", Price: 100}))
	require.NoError(t, store.AddItem(ctx, cart.Product{ID: 2, Name: "RAM", Price: 50}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	restored, err := cart.Open(ctx, reopened)
	require.NoError(t, err)
	assert.Equal(t, store.Items(), restored.Items())
	assert.Equal(t, int64(250), restored.Total())
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
