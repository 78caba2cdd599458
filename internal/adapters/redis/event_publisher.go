package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// EventPublisherAdapter broadcasts domain events on a Redis channel per event type.
type EventPublisherAdapter struct {
	redisClient *redis.Client
	channel     string
	logger      domain.Logger
	sub         *redis.PubSub
}

func NewEventPublisherAdapter(redisClient *redis.Client, channel string, logger domain.Logger) *EventPublisherAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewEventPublisherAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewEventPublisherAdapter")
	}
	return &EventPublisherAdapter{
		redisClient: redisClient,
		channel:     channel,
		logger:      logger,
	}
}

// ChannelFor returns "<base>:<event type>".
func ChannelFor(base string, eventType domain.EventType) string {
	return fmt.Sprintf("%s:%s", base, eventType)
}

func (a *EventPublisherAdapter) Publish(ctx context.Context, event domain.Event) error {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	channel := ChannelFor(a.channel, event.Type)
	if err := a.redisClient.Publish(ctx, channel, string(payloadBytes)).Err(); err != nil {
		a.logger.Error(ctx, "Failed to publish event to Redis", "channel", channel, "error", err)
		return fmt.Errorf("failed to publish to Redis channel '%s': %w", channel, err)
	}
	a.logger.Debug(ctx, "Published event", "channel", channel, "type", string(event.Type))
	return nil
}

// Subscribe listens on every event channel and invokes handler for each
// decoded event. The receive loop runs until Close or ctx cancellation.
func (a *EventPublisherAdapter) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	if a.sub != nil {
		return fmt.Errorf("subscription already active on this adapter")
	}
	pattern := EscapeGlob(a.channel+":") + "*"
	a.sub = a.redisClient.PSubscribe(ctx, pattern)
	if _, err := a.sub.Receive(ctx); err != nil {
		_ = a.sub.Close()
		a.sub = nil
		return fmt.Errorf("failed to subscribe to pattern '%s': %w", pattern, err)
	}

	ch := a.sub.Channel()
	go func() {
		for msg := range ch {
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				a.logger.Warn(ctx, "Dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			handler(ctx, event)
		}
		a.logger.Info(ctx, "Event subscription ended", "pattern", pattern)
	}()
	return nil
}

func (a *EventPublisherAdapter) Close() error {
	if a.sub == nil {
		return nil
	}
	err := a.sub.Close()
	a.sub = nil
	if err != nil {
		return fmt.Errorf("error closing Redis pub/sub: %w", err)
	}
	return nil
}
