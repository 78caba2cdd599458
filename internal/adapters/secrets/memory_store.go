package secrets

import (
	"context"
	"sync"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// MemoryStore holds credentials for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	creds domain.Credentials
	set   bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get(context.Context) (domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return s.creds, nil
}

func (s *MemoryStore) Set(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.set = true
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = domain.Credentials{}
	s.set = false
	return nil
}
