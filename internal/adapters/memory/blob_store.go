package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// BlobStore is an in-process domain.BlobStore. It backs tests and is the
// fallback when durable storage cannot be opened.
type BlobStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
	now     func() time.Time
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

func NewBlobStore(opts ...Option) *BlobStore {
	s := &BlobStore{
		entries: make(map[string]domain.CacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BlobStore) Get(_ context.Context, key string) (domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return domain.CacheEntry{}, domain.ErrNotFound
	}
	entry.Value = append([]byte(nil), entry.Value...)
	return entry, nil
}

func (s *BlobStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now()
	if prev, ok := s.entries[key]; ok && prev.UpdatedAt.After(stamp) {
		stamp = prev.UpdatedAt
	}
	s.entries[key] = domain.CacheEntry{
		Key:       key,
		Value:     append([]byte(nil), value...),
		UpdatedAt: stamp,
	}
	return nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *BlobStore) DeleteByPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

func (s *BlobStore) Ping(context.Context) error { return nil }

func (s *BlobStore) Close() error { return nil }

// Len reports the number of stored entries.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
