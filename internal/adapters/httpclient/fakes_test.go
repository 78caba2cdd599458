package httpclient

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
	"gitlab.com/simigo/client/datacore/internal/adapters/secrets"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

type fakeConn struct {
	online    atomic.Bool
	probes    atomic.Int32
	mu        sync.Mutex
	reachable []bool
}

func newFakeConn() *fakeConn {
	c := &fakeConn{}
	c.online.Store(true)
	return c
}

func (f *fakeConn) IsOnline() bool      { return f.online.Load() }
func (f *fakeConn) BackendOnline() bool { return true }
func (f *fakeConn) ProbeConnectivity()  { f.probes.Add(1) }
func (f *fakeConn) ReportBackendReachable(r bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reachable = append(f.reachable, r)
}

func (f *fakeConn) lastReachable() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reachable) == 0 {
		return false, false
	}
	return f.reachable[len(f.reachable)-1], true
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *fakePublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) all() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

type staticLang string

func (l staticLang) Language() string { return string(l) }

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

type harness struct {
	client *Client
	conn   *fakeConn
	events *fakePublisher
	creds  *secrets.MemoryStore
}

func newHarness(t *testing.T, baseURL string, opts ...Option) *harness {
	t.Helper()
	cfg := config.Config{}
	cfg.API.BaseURL = baseURL
	cfg.API.RetryDelayMs = 1
	h := &harness{
		conn:   newFakeConn(),
		events: &fakePublisher{},
		creds:  secrets.NewMemoryStore(),
	}
	h.client = NewClient(config.NewStaticProvider(cfg), h.creds, h.conn, h.events, staticLang("ja"), logger.NewNop(), opts...)
	return h
}
