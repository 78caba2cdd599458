package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewBlobStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put(ctx, "k", []byte("v1")))
	require.NoError(t, s.Put(ctx, "k", []byte("v2")))
	entry, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(entry.Value))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteByPrefixOnlyTouchesScope(t *testing.T) {
	ctx := context.Background()
	s := NewBlobStore()
	require.NoError(t, s.Put(ctx, "env:prod:user:1:orders:v1", []byte("a")))
	require.NoError(t, s.Put(ctx, "env:prod:user:1:order:v1:9", []byte("b")))
	require.NoError(t, s.Put(ctx, "env:prod:user:12:orders:v1", []byte("c")))
	require.NoError(t, s.Put(ctx, "orders:v1", []byte("legacy")))

	require.NoError(t, s.DeleteByPrefix(ctx, "env:prod:user:1:"))

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(ctx, "env:prod:user:12:orders:v1")
	assert.NoError(t, err)
}

func TestUpdatedAtIsMonotonic(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewBlobStore(WithClock(func() time.Time { return now }))

	require.NoError(t, s.Put(ctx, "k", []byte("1")))
	now = now.Add(-time.Hour)
	require.NoError(t, s.Put(ctx, "k", []byte("2")))

	entry, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), entry.UpdatedAt)
	assert.Equal(t, "2", string(entry.Value))
}

func TestReturnedValueIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewBlobStore()
	require.NoError(t, s.Put(ctx, "k", []byte("abc")))
	entry, _ := s.Get(ctx, "k")
	entry.Value[0] = 'z'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again.Value))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewBlobStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = s.Put(ctx, key, []byte("v"))
			_, _ = s.Get(ctx, key)
			if i%8 == 0 {
				_ = s.DeleteByPrefix(ctx, "k")
			}
		}(i)
	}
	wg.Wait()
}
