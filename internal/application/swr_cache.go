package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/metrics"
	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
	"gitlab.com/simigo/client/datacore/pkg/contextkeys"
)

// ScopeSource supplies the environment and user the cache is partitioned by.
type ScopeSource interface {
	CacheScope() cachekeys.Scope
}

// Hit is a decoded cache entry.
type Hit[T any] struct {
	Value     T
	UpdatedAt time.Time
	IsStale   bool
}

// SWRCache stores JSON snapshots per scoped key and reports their staleness.
// Storage failures never surface to callers: a broken entry is a miss.
type SWRCache struct {
	store  domain.BlobStore
	scope  ScopeSource
	logger domain.Logger
	now    func() time.Time
}

// CacheOption configures an SWRCache.
type CacheOption func(*SWRCache)

// WithCacheClock replaces time.Now for staleness checks.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *SWRCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewSWRCache(store domain.BlobStore, scope ScopeSource, logger domain.Logger, opts ...CacheOption) *SWRCache {
	if store == nil {
		panic("blob store is nil in NewSWRCache")
	}
	if scope == nil {
		panic("scope source is nil in NewSWRCache")
	}
	if logger == nil {
		panic("logger is nil in NewSWRCache")
	}
	c := &SWRCache{store: store, scope: scope, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scope returns the scope reads and writes currently resolve to. Callers that
// span a user switch capture it once and use LoadScoped and SaveScoped.
func (c *SWRCache) Scope() cachekeys.Scope {
	return c.scope.CacheScope()
}

// Load returns the entry stored under key for the current scope, falling back
// to the unscoped legacy key. An entry older than ttl is stale unless
// useStale is set.
func Load[T any](ctx context.Context, c *SWRCache, key string, ttl time.Duration, useStale bool) (Hit[T], bool) {
	return LoadScoped[T](ctx, c, c.Scope(), key, ttl, useStale)
}

// LoadScoped is Load against an explicit scope.
func LoadScoped[T any](ctx context.Context, c *SWRCache, scope cachekeys.Scope, key string, ttl time.Duration, useStale bool) (Hit[T], bool) {
	ctx = context.WithValue(ctx, contextkeys.CacheKeyKey, key)
	prefixed := scope.Scoped(key)

	entry, err := c.store.Get(ctx, prefixed)
	result := "hit"
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Debug(ctx, "Cache read failed", "error", err)
		}
		entry, err = c.store.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				c.logger.Debug(ctx, "Legacy cache read failed", "error", err)
			}
			metrics.ObserveCacheLookup("miss")
			return Hit[T]{}, false
		}
		result = "legacy"
	}

	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		c.logger.Debug(ctx, "Cache entry does not decode, treating as miss", "error", err)
		metrics.ObserveCacheLookup("corrupt")
		return Hit[T]{}, false
	}

	stale := !useStale && c.now().Sub(entry.UpdatedAt) > ttl
	if stale && result == "hit" {
		result = "stale"
	}
	metrics.ObserveCacheLookup(result)
	return Hit[T]{Value: value, UpdatedAt: entry.UpdatedAt, IsStale: stale}, true
}

// Save stores value under the scoped key and drops the legacy unscoped copy.
func Save[T any](ctx context.Context, c *SWRCache, key string, value T) error {
	return SaveScoped(ctx, c, c.Scope(), key, value)
}

// SaveScoped is Save against an explicit scope.
func SaveScoped[T any](ctx context.Context, c *SWRCache, scope cachekeys.Scope, key string, value T) error {
	ctx = context.WithValue(ctx, contextkeys.CacheKeyKey, key)
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	err = c.store.Put(ctx, scope.Scoped(key), data)
	metrics.ObserveCacheWrite("put", err)
	if err != nil {
		c.logger.Debug(ctx, "Cache write failed", "error", err)
		return fmt.Errorf("store cache value: %w", err)
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Debug(ctx, "Legacy cache cleanup failed", "error", err)
	}
	return nil
}

// Invalidate removes key in both its scoped and legacy form.
func (c *SWRCache) Invalidate(ctx context.Context, key string) error {
	errScoped := c.store.Delete(ctx, c.scope.CacheScope().Scoped(key))
	errLegacy := c.store.Delete(ctx, key)
	err := errors.Join(errScoped, errLegacy)
	metrics.ObserveCacheWrite("invalidate", err)
	return err
}

// ClearForUser removes every entry in the current scope.
func (c *SWRCache) ClearForUser(ctx context.Context) error {
	prefix := c.scope.CacheScope().Prefix()
	err := c.store.DeleteByPrefix(ctx, prefix)
	metrics.ObserveCacheWrite("clear", err)
	if err != nil {
		return fmt.Errorf("clear cache scope %s: %w", prefix, err)
	}
	c.logger.Info(ctx, "Cleared cache scope", "prefix", prefix)
	return nil
}

// Ping reports whether the underlying store is usable.
func (c *SWRCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
