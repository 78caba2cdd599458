package application

import (
	"context"

	"gitlab.com/simigo/client/datacore/internal/adapters/metrics"
	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
	"gitlab.com/simigo/client/datacore/pkg/contextkeys"
)

// Checkout runs a payment and broadcasts its outcome.
type Checkout struct {
	processors *Processors
	cache      *SWRCache
	events     domain.EventPublisher
	logger     domain.Logger
}

func NewCheckout(processors *Processors, cache *SWRCache, events domain.EventPublisher, logger domain.Logger) *Checkout {
	if processors == nil || cache == nil || events == nil || logger == nil {
		panic("nil dependency in NewCheckout")
	}
	return &Checkout{processors: processors, cache: cache, events: events, logger: logger}
}

// Pay settles order with method. oldOrderID is carried on the success event
// when the payment replaces an earlier order and may be empty.
func (c *Checkout) Pay(ctx context.Context, order domain.PaymentOrder, method domain.PaymentMethod, oldOrderID string) (domain.PaymentStatus, error) {
	ctx = context.WithValue(ctx, contextkeys.OrderIDKey, order.ID)

	processor, err := c.processors.For(method)
	if err != nil {
		c.failed(ctx, order, method, err, "")
		return "", err
	}

	status, err := processor.Start(ctx, order)
	switch {
	case err != nil:
		c.failed(ctx, order, method, err, "")
		return "", err
	case status == domain.PaymentPaid:
		c.succeeded(ctx, order, method, oldOrderID)
	default:
		c.failed(ctx, order, method, nil, "payment "+string(status))
	}
	return status, nil
}

func (c *Checkout) succeeded(ctx context.Context, order domain.PaymentOrder, method domain.PaymentMethod, oldOrderID string) {
	metrics.ObservePayment(string(method), "paid")
	for _, key := range []string{cachekeys.Order(order.ID), cachekeys.Orders()} {
		if err := c.cache.Invalidate(ctx, key); err != nil {
			c.logger.Debug(ctx, "Cache invalidation failed", "key", key, "error", err)
		}
	}
	attrs := map[string]string{"orderId": order.ID, "method": string(method)}
	if oldOrderID != "" {
		attrs["oldOrderId"] = oldOrderID
	}
	c.logger.Info(ctx, "Payment succeeded", "method", string(method))
	_ = c.events.Publish(ctx, domain.Event{Type: domain.EventPaymentSucceeded, Attributes: attrs})
}

func (c *Checkout) failed(ctx context.Context, order domain.PaymentOrder, method domain.PaymentMethod, err error, reason string) {
	if reason == "" && err != nil {
		reason = err.Error()
	}
	category, code := domain.Categorize(err, reason)
	metrics.ObservePayment(string(method), category)

	attrs := map[string]string{
		"orderId":        order.ID,
		"method":         string(method),
		"reasonCategory": category,
	}
	if reason != "" {
		attrs["reason"] = reason
	}
	if code != "" {
		attrs["reasonCode"] = code
	}
	c.logger.Warn(ctx, "Payment failed", "method", string(method), "category", category, "error", err)
	_ = c.events.Publish(ctx, domain.Event{Type: domain.EventPaymentFailed, Attributes: attrs})
}
