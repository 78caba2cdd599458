package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

const (
	fieldValue     = "value"
	fieldUpdatedAt = "updated_at"
	scanBatch      = 200
)

// putScript keeps updated_at monotonic for a key.
var putScript = redis.NewScript(`
local ts = tonumber(ARGV[2])
local prev = redis.call('HGET', KEYS[1], 'updated_at')
if prev and tonumber(prev) > ts then ts = tonumber(prev) end
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'updated_at', ts)
return ts
`)

// BlobStoreAdapter stores each cache entry as a hash under namespace+key.
type BlobStoreAdapter struct {
	redisClient *redis.Client
	namespace   string
	logger      domain.Logger
	now         func() time.Time
}

// NewBlobStoreAdapter panics on nil dependencies.
func NewBlobStoreAdapter(redisClient *redis.Client, namespace string, logger domain.Logger) *BlobStoreAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewBlobStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewBlobStoreAdapter")
	}
	return &BlobStoreAdapter{
		redisClient: redisClient,
		namespace:   namespace,
		logger:      logger,
		now:         time.Now,
	}
}

func (a *BlobStoreAdapter) redisKey(key string) string {
	return a.namespace + key
}

func (a *BlobStoreAdapter) Get(ctx context.Context, key string) (domain.CacheEntry, error) {
	vals, err := a.redisClient.HMGet(ctx, a.redisKey(key), fieldValue, fieldUpdatedAt).Result()
	if errors.Is(err, redis.Nil) {
		return domain.CacheEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("redis HMGET for key '%s' failed: %w", key, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return domain.CacheEntry{}, domain.ErrNotFound
	}

	value, _ := vals[0].(string)
	stamp, _ := vals[1].(string)
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		a.logger.Warn(ctx, "Cache entry has unreadable timestamp", "key", key, "error", err)
		return domain.CacheEntry{}, domain.ErrNotFound
	}
	return domain.CacheEntry{
		Key:       key,
		Value:     []byte(value),
		UpdatedAt: time.UnixMilli(ms).UTC(),
	}, nil
}

func (a *BlobStoreAdapter) Put(ctx context.Context, key string, value []byte) error {
	ms := a.now().UTC().UnixMilli()
	if err := putScript.Run(ctx, a.redisClient, []string{a.redisKey(key)}, value, ms).Err(); err != nil {
		return fmt.Errorf("redis put for key '%s' failed: %w", key, err)
	}
	return nil
}

func (a *BlobStoreAdapter) Delete(ctx context.Context, key string) error {
	if err := a.redisClient.Del(ctx, a.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis DEL for key '%s' failed: %w", key, err)
	}
	return nil
}

// DeleteByPrefix walks matching keys with SCAN and deletes them in batches.
func (a *BlobStoreAdapter) DeleteByPrefix(ctx context.Context, prefix string) error {
	pattern := EscapeGlob(a.redisKey(prefix)) + "*"
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := a.redisClient.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis SCAN for prefix '%s' failed: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := a.redisClient.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis DEL for prefix '%s' failed: %w", prefix, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	a.logger.Debug(ctx, "Deleted cache entries by prefix", "prefix", prefix, "count", deleted)
	return nil
}

func (a *BlobStoreAdapter) Ping(ctx context.Context) error {
	return a.redisClient.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the provider that created it.
func (a *BlobStoreAdapter) Close() error { return nil }

// EscapeGlob escapes Redis MATCH metacharacters so a prefix is matched literally.
func EscapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
