package application

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/simigo/client/datacore/internal/adapters/metrics"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

type inflight struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	result any
	err    error
}

// Coordinator collapses concurrent work under the same key into one execution.
type Coordinator struct {
	conn   domain.Connectivity
	logger domain.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[string]*inflight
}

func NewCoordinator(conn domain.Connectivity, logger domain.Logger) *Coordinator {
	if conn == nil {
		panic("connectivity is nil in NewCoordinator")
	}
	if logger == nil {
		panic("logger is nil in NewCoordinator")
	}
	return &Coordinator{
		conn:    conn,
		logger:  logger,
		tracer:  otel.Tracer("gitlab.com/simigo/client/datacore/coordinator"),
		entries: make(map[string]*inflight),
	}
}

// Run executes work under key unless an execution is already in flight, in
// which case it waits for and shares that result. A live execution whose
// result is not a T is ignored and a fresh one started. Nothing is started
// while offline.
//
// work receives a context that is cancelled by Cancel or CancelAll but not by
// the caller's ctx, since other callers may be waiting on the same result.
func Run[T any](ctx context.Context, c *Coordinator, key string, work func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for {
		e, owner, err := c.claim(ctx, key)
		if err != nil {
			metrics.ObserveCoordinator("offline")
			return zero, err
		}
		if owner {
			return execute(c, key, e, work)
		}

		select {
		case <-e.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		if e.err != nil {
			metrics.ObserveCoordinator("shared")
			return zero, e.err
		}
		if v, ok := e.result.(T); ok {
			metrics.ObserveCoordinator("shared")
			return v, nil
		}
		metrics.ObserveCoordinator("type_mismatch")
		c.logger.Warn(ctx, "In-flight result has unexpected type, starting fresh work",
			"key", key, "got", fmt.Sprintf("%T", e.result), "want", fmt.Sprintf("%T", zero))
		c.drop(key, e)
	}
}

func execute[T any](c *Coordinator, key string, e *inflight, work func(context.Context) (T, error)) (v T, err error) {
	metrics.ObserveCoordinator("started")
	ctx, span := c.tracer.Start(e.ctx, "coordinator.Run", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			c.finish(key, e, nil, fmt.Errorf("work for %q panicked: %v", key, r))
			panic(r)
		}
	}()
	v, err = work(ctx)
	c.finish(key, e, v, err)
	return v, err
}

// claim returns the entry registered under key, or registers a new one that
// the caller then owns. Lookup and insert share one critical section so
// simultaneous callers agree on a single owner.
func (c *Coordinator) claim(ctx context.Context, key string) (*inflight, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e, false, nil
	}
	if !c.conn.IsOnline() {
		return nil, false, domain.NewOffline()
	}
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e := &inflight{ctx: workCtx, cancel: cancel, done: make(chan struct{})}
	c.entries[key] = e
	metrics.InflightGauge.Inc()
	return e, true, nil
}

// drop removes e only while it is still the registered entry for key.
func (c *Coordinator) drop(key string, e *inflight) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] != e {
		return false
	}
	delete(c.entries, key)
	metrics.InflightGauge.Dec()
	return true
}

// finish unregisters e and then publishes its outcome to waiters.
func (c *Coordinator) finish(key string, e *inflight, result any, err error) {
	c.drop(key, e)
	e.result = result
	e.err = err
	e.cancel()
	close(e.done)
}

// Cancel aborts the execution registered under key, if any.
func (c *Coordinator) Cancel(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		metrics.InflightGauge.Dec()
	}
	c.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// CancelAll aborts every registered execution.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*inflight)
	metrics.InflightGauge.Sub(float64(len(entries)))
	c.mu.Unlock()
	for _, e := range entries {
		e.cancel()
	}
}

// Inflight reports how many executions are registered.
func (c *Coordinator) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
