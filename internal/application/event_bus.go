package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// EventBus delivers events to in-process subscribers and, optionally, to an
// external forwarder such as NATS or Redis pub/sub.
type EventBus struct {
	logger    domain.Logger
	forwarder domain.EventPublisher

	mu     sync.RWMutex
	nextID int
	subs   map[domain.EventType]map[int]domain.EventHandler
}

// NewEventBus accepts a nil forwarder for local-only delivery.
func NewEventBus(logger domain.Logger, forwarder domain.EventPublisher) *EventBus {
	if logger == nil {
		panic("logger is nil in NewEventBus")
	}
	return &EventBus{
		logger:    logger,
		forwarder: forwarder,
		subs:      make(map[domain.EventType]map[int]domain.EventHandler),
	}
}

// Subscribe registers h for events of type t and returns an unsubscribe func.
func (b *EventBus) Subscribe(t domain.EventType, h domain.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[t] == nil {
		b.subs[t] = make(map[int]domain.EventHandler)
	}
	b.subs[t][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish calls subscribers synchronously and forwards the event. Neither a
// panicking subscriber nor a forwarder failure fails the publish.
func (b *EventBus) Publish(ctx context.Context, event domain.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]domain.EventHandler, 0, len(b.subs[event.Type]))
	for _, h := range b.subs[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, event, h)
	}

	if b.forwarder != nil {
		if err := b.forwarder.Publish(ctx, event); err != nil {
			b.logger.Warn(ctx, "Event forwarding failed", "type", string(event.Type), "error", err)
		}
	}
	return nil
}

func (b *EventBus) deliver(ctx context.Context, event domain.Event, h domain.EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "Event handler panicked", "type", string(event.Type), "panic_info", fmt.Sprintf("%v", r))
		}
	}()
	h(ctx, event)
}
