package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// BlobStore persists cache entries in a single SQLite table.
type BlobStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Option configures a BlobStore.
type Option func(*BlobStore)

// WithClock replaces time.Now for stamping writes.
func WithClock(now func() time.Time) Option {
	return func(s *BlobStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (or creates) the cache database at path and applies the schema.
func Open(path string, opts ...Option) (*BlobStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps upserts serialized under WAL.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	store := &BlobStore{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func (s *BlobStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *BlobStore) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *BlobStore) Get(ctx context.Context, key string) (domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.CacheEntry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.CacheEntry{}, fmt.Errorf("storage is not configured")
	}

	var (
		value     []byte
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `SELECT value, updated_at FROM cache_entries WHERE key = ?`, key)
	if err := row.Scan(&value, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CacheEntry{}, domain.ErrNotFound
		}
		return domain.CacheEntry{}, fmt.Errorf("get cache entry: %w", err)
	}
	return domain.CacheEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	updated_at = MAX(cache_entries.updated_at, excluded.updated_at)
`,
		key,
		value,
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// DeleteByPrefix compares raw prefixes so '%' and '_' in keys are not wildcards.
func (s *BlobStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if prefix == "" {
		_, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries`)
		if err != nil {
			return fmt.Errorf("delete cache entries: %w", err)
		}
		return nil
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE substr(key, 1, ?) = ?`,
		len([]rune(prefix)), prefix,
	)
	if err != nil {
		return fmt.Errorf("delete cache entries by prefix: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
