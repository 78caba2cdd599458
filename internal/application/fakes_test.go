package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/adapters/memory"
	"gitlab.com/simigo/client/datacore/internal/adapters/secrets"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeConn struct {
	online atomic.Bool
}

func newFakeConn() *fakeConn {
	c := &fakeConn{}
	c.online.Store(true)
	return c
}

func (c *fakeConn) IsOnline() bool              { return c.online.Load() }
func (c *fakeConn) BackendOnline() bool         { return true }
func (c *fakeConn) ProbeConnectivity()          {}
func (c *fakeConn) ReportBackendReachable(bool) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) all() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

// testEnv wires the application layer against an httptest backend and an
// in-memory blob store.
type testEnv struct {
	cfg    config.Provider
	clock  *fakeClock
	conn   *fakeConn
	store  *memory.BlobStore
	state  *SessionState
	cache  *SWRCache
	coord  *Coordinator
	bus    *EventBus
	creds  *secrets.MemoryStore
	prefs  *Preferences
	client *httpclient.Client
	ttl    *TTLPolicy
	log    domain.Logger
}

func newTestEnv(t *testing.T, handler http.Handler, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{}
	cfg.API.BaseURL = srv.URL
	cfg.API.RetryDelayMs = 1
	for _, m := range mutate {
		m(&cfg)
	}

	e := &testEnv{
		cfg:   config.NewStaticProvider(cfg),
		clock: newFakeClock(),
		conn:  newFakeConn(),
		creds: secrets.NewMemoryStore(),
		log:   logger.NewNop(),
	}
	e.store = memory.NewBlobStore(memory.WithClock(e.clock.Now))
	e.state = NewSessionState(e.cfg)
	e.cache = NewSWRCache(e.store, e.state, e.log, WithCacheClock(e.clock.Now))
	e.coord = NewCoordinator(e.conn, e.log)
	e.bus = NewEventBus(e.log, nil)
	e.prefs = NewPreferences(e.cfg)
	e.client = httpclient.NewClient(e.cfg, e.creds, e.conn, e.bus, e.prefs, e.log, httpclient.WithDoer(srv.Client()))
	e.ttl = NewTTLPolicy(e.cfg, e.log)
	return e
}

func (e *testEnv) catalog() *CatalogService {
	return NewCatalogService(e.client, e.cache, e.coord, e.ttl, e.state, e.prefs, e.log)
}

func (e *testEnv) session() *SessionManager {
	return NewSessionManager(e.state, e.cache, e.client, e.creds, e.bus, e.log)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
