package secrets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds", "session.bin")
	store, err := NewFileStore(path, testKey, logger.NewNop())
	require.NoError(t, err)

	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)

	creds := domain.Credentials{AccessToken: "at-1", RefreshToken: "rt-1"}
	require.NoError(t, store.Set(ctx, creds))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "at-1"))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}

func TestFileStoreRejectsBadKey(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "s"), "abcd", logger.NewNop())
	assert.Error(t, err)
}

func TestFileStoreCorruptFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	store, err := NewFileStore(path, testKey, logger.NewNop())
	require.NoError(t, err)

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)

	require.NoError(t, store.Set(ctx, domain.Credentials{AccessToken: "a"}))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}
