package domain

import (
	"context"
	"time"
)

// EventType names an application event broadcast on the event bus.
type EventType string

const (
	EventSessionExpired   EventType = "session_expired"
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)

// Event is a broadcast notification. Attributes carry flat string metadata
// such as orderId or reasonCategory.
type Event struct {
	Type       EventType         `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher broadcasts events to whoever is listening.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventHandler receives events from an in-process subscription.
type EventHandler func(ctx context.Context, event Event)
