package connectivity

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/metrics"
	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/safego"
)

// Doer is the subset of *http.Client the monitor needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Monitor tracks device and backend reachability. Both start optimistic
// and flip on probe results or on reports from the HTTP client.
type Monitor struct {
	cfgProvider config.Provider
	logger      domain.Logger
	client      Doer
	now         func() time.Time

	online        atomic.Bool
	backendOnline atomic.Bool

	mu               sync.Mutex
	lastProbe        time.Time
	lastBackendProbe time.Time

	wg sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

func WithDoer(d Doer) Option {
	return func(m *Monitor) {
		if d != nil {
			m.client = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMonitor(cfgProvider config.Provider, logger domain.Logger, opts ...Option) *Monitor {
	if cfgProvider == nil {
		panic("cfgProvider cannot be nil in NewMonitor")
	}
	if logger == nil {
		panic("logger cannot be nil in NewMonitor")
	}
	m := &Monitor{
		cfgProvider: cfgProvider,
		logger:      logger,
		client:      &http.Client{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.online.Store(true)
	m.backendOnline.Store(true)
	metrics.SetOnline(true)
	metrics.SetBackendReachable(true)
	return m
}

func (m *Monitor) IsOnline() bool { return m.online.Load() }

func (m *Monitor) BackendOnline() bool { return m.backendOnline.Load() }

// SetOnline records the device path state.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) != online {
		m.logger.Info(context.Background(), "Device connectivity changed", "online", online)
	}
	metrics.SetOnline(online)
}

func (m *Monitor) ReportBackendReachable(reachable bool) {
	if m.backendOnline.Swap(reachable) != reachable {
		m.logger.Info(context.Background(), "Backend reachability changed", "reachable", reachable)
	}
	metrics.SetBackendReachable(reachable)
}

// ProbeConnectivity starts a throttled background probe of the device path.
func (m *Monitor) ProbeConnectivity() {
	if !m.claim(&m.lastProbe) {
		return
	}
	ctx := context.Background()
	safego.Tracked(ctx, m.logger, &m.wg, "connectivity-probe", func() {
		m.SetOnline(m.probe(ctx, m.cfgProvider.Get().Connectivity.ProbeURL))
	})
}

// ProbeBackend starts a throttled background GET of <base>/health.
func (m *Monitor) ProbeBackend() {
	if !m.claim(&m.lastBackendProbe) {
		return
	}
	ctx := context.Background()
	safego.Tracked(ctx, m.logger, &m.wg, "backend-probe", func() {
		m.ReportBackendReachable(m.probe(ctx, m.healthURL()))
	})
}

// CheckNow runs both probes synchronously, ignoring the throttle.
func (m *Monitor) CheckNow(ctx context.Context) {
	m.SetOnline(m.probe(ctx, m.cfgProvider.Get().Connectivity.ProbeURL))
	m.ReportBackendReachable(m.probe(ctx, m.healthURL()))
}

// Wait blocks until background probes finish.
func (m *Monitor) Wait() { m.wg.Wait() }

func (m *Monitor) healthURL() string {
	return strings.TrimRight(m.cfgProvider.Get().API.BaseURL, "/") + "/health"
}

func (m *Monitor) claim(last *time.Time) bool {
	throttle := time.Duration(m.cfgProvider.Get().Connectivity.ProbeThrottleMs) * time.Millisecond
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !last.IsZero() && now.Sub(*last) <= throttle {
		return false
	}
	*last = now
	return true
}

func (m *Monitor) probe(ctx context.Context, rawURL string) bool {
	timeout := time.Duration(m.cfgProvider.Get().Connectivity.ProbeTimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		m.logger.Warn(ctx, "Invalid probe URL", "url", rawURL, "error", err)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug(ctx, "Probe failed", "url", rawURL, "error", err)
		return false
	}
	resp.Body.Close()
	return Reachable(resp.StatusCode)
}

// Reachable reports whether a probe status counts as online.
func Reachable(status int) bool {
	return status == http.StatusNoContent || (status >= 200 && status < 400)
}

var _ domain.Connectivity = (*Monitor)(nil)
