package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

// EventPublisherAdapter broadcasts domain events on core NATS subjects
// "<prefix>.<event type>".
type EventPublisherAdapter struct {
	nc     *nats.Conn
	prefix string
	logger domain.Logger
	subs   []*nats.Subscription
}

// NewEventPublisherAdapter connects to NATS and returns a cleanup that drains the connection.
func NewEventPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*EventPublisherAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-events", appFullCfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	adapter := &EventPublisherAdapter{
		nc:     nc,
		prefix: natsCfg.SubjectPrefix,
		logger: appLogger,
	}
	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}
	return adapter, cleanup, nil
}

// SubjectFor returns the subject an event type is published on.
func SubjectFor(prefix string, eventType domain.EventType) string {
	if prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}

func (a *EventPublisherAdapter) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := SubjectFor(a.prefix, event.Type)
	if err := a.nc.Publish(subject, payload); err != nil {
		a.logger.Error(ctx, "Failed to publish event to NATS", "subject", subject, "error", err)
		return fmt.Errorf("failed to publish to NATS subject '%s': %w", subject, err)
	}
	a.logger.Debug(ctx, "Published event", "subject", subject)
	return nil
}

// Subscribe delivers every event under the prefix to handler.
func (a *EventPublisherAdapter) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	subject := SubjectFor(a.prefix, ">")
	sub, err := a.nc.Subscribe(subject, func(msg *nats.Msg) {
		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			a.logger.Warn(ctx, "Dropping malformed event", "subject", msg.Subject, "error", err)
			return
		}
		handler(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", subject, err)
	}
	a.subs = append(a.subs, sub)
	return nil
}

// Close drains the connection, which also closes it.
func (a *EventPublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err)
		}
	}
}
