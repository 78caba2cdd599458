package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
)

type snapshot struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e := newTestEnv(t, nil)
	e.state.SetCurrentUser("u1")
	ctx := context.Background()

	require.NoError(t, Save(ctx, e.cache, "orders:v1", snapshot{Name: "a", Count: 2}))

	hit, ok := Load[snapshot](ctx, e.cache, "orders:v1", time.Minute, false)
	require.True(t, ok)
	assert.Equal(t, snapshot{Name: "a", Count: 2}, hit.Value)
	assert.False(t, hit.IsStale)
	assert.Equal(t, e.clock.Now(), hit.UpdatedAt)

	_, err := e.store.Get(ctx, "env:prod:user:u1:orders:v1")
	assert.NoError(t, err)
}

func TestLoadStaleness(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, Save(ctx, e.cache, "k", 1))

	e.clock.Advance(60 * time.Second)
	hit, ok := Load[int](ctx, e.cache, "k", 60*time.Second, false)
	require.True(t, ok)
	assert.False(t, hit.IsStale, "age equal to ttl is still fresh")

	e.clock.Advance(time.Second)
	hit, ok = Load[int](ctx, e.cache, "k", 60*time.Second, false)
	require.True(t, ok)
	assert.True(t, hit.IsStale)

	hit, ok = Load[int](ctx, e.cache, "k", 60*time.Second, true)
	require.True(t, ok)
	assert.False(t, hit.IsStale, "useStale serves any age as fresh")
}

func TestLoadMiss(t *testing.T) {
	e := newTestEnv(t, nil)
	_, ok := Load[int](context.Background(), e.cache, "absent", time.Minute, false)
	assert.False(t, ok)
}

func TestLegacyKeyFallbackAndMigration(t *testing.T) {
	e := newTestEnv(t, nil)
	e.state.SetCurrentUser("u1")
	ctx := context.Background()
	require.NoError(t, e.store.Put(ctx, "orders:v1", []byte(`{"name":"legacy","count":1}`)))

	hit, ok := Load[snapshot](ctx, e.cache, "orders:v1", time.Minute, false)
	require.True(t, ok)
	assert.Equal(t, "legacy", hit.Value.Name)

	require.NoError(t, Save(ctx, e.cache, "orders:v1", snapshot{Name: "scoped"}))
	_, err := e.store.Get(ctx, "orders:v1")
	assert.Error(t, err, "legacy key is removed on save")

	hit, ok = Load[snapshot](ctx, e.cache, "orders:v1", time.Minute, false)
	require.True(t, ok)
	assert.Equal(t, "scoped", hit.Value.Name)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, e.store.Put(ctx, e.state.CacheScope().Scoped("k"), []byte("{not json")))

	_, ok := Load[snapshot](ctx, e.cache, "k", time.Minute, false)
	assert.False(t, ok)
}

func TestInvalidateRemovesBothForms(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, Save(ctx, e.cache, "k", 1))
	require.NoError(t, e.store.Put(ctx, "k", []byte("2")))

	require.NoError(t, e.cache.Invalidate(ctx, "k"))
	assert.Equal(t, 0, e.store.Len())
}

func TestClearForUserOnlyTouchesCurrentScope(t *testing.T) {
	tests := []struct {
		name         string
		mine, theirs string
	}{
		{"numeric ids", "1", "10"},
		{"separator in id", "a", "a:b"},
		{"dash id and signed out", "", "-"},
		{"signed out and dash id", "-", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			ctx := context.Background()

			e.state.SetCurrentUser(tc.mine)
			require.NoError(t, Save(ctx, e.cache, cachekeys.Orders(), "mine"))
			e.state.SetCurrentUser(tc.theirs)
			require.NoError(t, Save(ctx, e.cache, cachekeys.Orders(), "theirs"))

			e.state.SetCurrentUser(tc.mine)
			require.NoError(t, e.cache.ClearForUser(ctx))
			_, ok := Load[string](ctx, e.cache, cachekeys.Orders(), time.Hour, false)
			assert.False(t, ok)

			e.state.SetCurrentUser(tc.theirs)
			hit, ok := Load[string](ctx, e.cache, cachekeys.Orders(), time.Hour, false)
			require.True(t, ok)
			assert.Equal(t, "theirs", hit.Value)
		})
	}
}

func TestScopeFollowsStaleUser(t *testing.T) {
	e := newTestEnv(t, nil, func(c *config.Config) { c.App.Environment = "mock" })
	ctx := context.Background()
	e.state.SetCurrentUser("u7")
	require.NoError(t, Save(ctx, e.cache, "k", "v"))

	e.state.expire()
	e.clock.Advance(time.Hour)
	assert.Equal(t, "env:mock:user:u7:", e.state.CacheScope().Prefix())
	hit, ok := Load[string](ctx, e.cache, "k", time.Minute, e.state.UseStaleCache())
	require.True(t, ok)
	assert.False(t, hit.IsStale)

	e.state.resetStale()
	assert.Equal(t, "env:mock:user:-:", e.state.CacheScope().Prefix())
}
