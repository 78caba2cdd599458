package application

import (
	"sync"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
)

// SessionState is the signed-in identity the cache is scoped by. After an
// involuntary sign-out it remembers the previous user so that user's cached
// data stays readable until someone signs in again.
type SessionState struct {
	env string

	mu            sync.RWMutex
	currentUserID string
	staleUserID   string
	useStale      bool
}

func NewSessionState(cfgProvider config.Provider) *SessionState {
	env := cachekeys.EnvProd
	if cfgProvider.Get().IsMock() {
		env = cachekeys.EnvMock
	}
	return &SessionState{env: env}
}

// SetCurrentUser records the signed-in user. A non-empty id also ends any
// stale-cache window.
func (s *SessionState) SetCurrentUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUserID = id
	if id != "" {
		s.staleUserID = ""
		s.useStale = false
	}
}

func (s *SessionState) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUserID
}

// UseStaleCache reports whether reads should accept entries of any age.
func (s *SessionState) UseStaleCache() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useStale
}

// CacheScope implements ScopeSource.
func (s *SessionState) CacheScope() cachekeys.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user := s.currentUserID
	if user == "" && s.useStale {
		user = s.staleUserID
	}
	return cachekeys.Scope{Env: s.env, UserID: user}
}

// expire keeps the departing user's scope readable and signs them out.
func (s *SessionState) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentUserID != "" {
		s.staleUserID = s.currentUserID
	}
	s.useStale = true
	s.currentUserID = ""
}

func (s *SessionState) resetStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleUserID = ""
	s.useStale = false
}
