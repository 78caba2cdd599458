package application

import (
	"context"
	"strings"
	"time"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

// PaymentQuerier reports the gateway's view of a payment.
type PaymentQuerier interface {
	Query(ctx context.Context, req QueryPaymentRequest) (QueryPaymentResponse, error)
}

// Poller waits for the gateway to settle a payment.
type Poller struct {
	querier     PaymentQuerier
	cfgProvider config.Provider
	logger      domain.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollClock replaces the clock and sleep used between queries.
func WithPollClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

func NewPoller(querier PaymentQuerier, cfgProvider config.Provider, logger domain.Logger, opts ...PollerOption) *Poller {
	if querier == nil || cfgProvider == nil || logger == nil {
		panic("nil dependency in NewPoller")
	}
	p := &Poller{
		querier:     querier,
		cfgProvider: cfgProvider,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) interval() time.Duration {
	return time.Duration(p.cfgProvider.Get().Payment.PollIntervalSeconds) * time.Second
}

func (p *Poller) timeout() time.Duration {
	return time.Duration(p.cfgProvider.Get().Payment.PollTimeoutSeconds) * time.Second
}

func statusPaid(status string) bool {
	s := strings.ToUpper(status)
	return strings.Contains(s, "SUCCESS") || strings.Contains(s, "PAID")
}

func statusFailed(status string) bool {
	s := strings.ToUpper(status)
	return strings.Contains(s, "FAILED") || strings.Contains(s, "CANCELLED") || strings.Contains(s, "VOID")
}

// WaitUntilPaid polls until the payment is paid or has terminally failed.
// A failed payment is a status, not an error.
func (p *Poller) WaitUntilPaid(ctx context.Context, req QueryPaymentRequest) (domain.PaymentStatus, error) {
	deadline := p.now().Add(p.timeout())
	for p.now().Before(deadline) {
		if err := p.sleep(ctx, p.interval()); err != nil {
			return "", err
		}
		q, err := p.querier.Query(ctx, req)
		if err != nil {
			return "", err
		}
		switch {
		case statusPaid(q.PaymentStatus):
			return domain.PaymentPaid, nil
		case statusFailed(q.PaymentStatus):
			p.logger.Info(ctx, "Payment reported failed", "status", q.PaymentStatus, "message", q.PaymentResultMessage)
			return domain.PaymentFailed, nil
		}
	}
	return "", domain.NewPollTimeout("payment result not confirmed yet, check the order details later")
}

// WaitForCardToken polls until card authorisation yields a token. A
// successful status without a token keeps waiting.
func (p *Poller) WaitForCardToken(ctx context.Context, req QueryPaymentRequest) (string, error) {
	deadline := p.now().Add(p.timeout())
	for p.now().Before(deadline) {
		if err := p.sleep(ctx, p.interval()); err != nil {
			return "", err
		}
		q, err := p.querier.Query(ctx, req)
		if err != nil {
			return "", err
		}
		if token := q.CardToken(); token != "" {
			return token, nil
		}
		if statusFailed(q.PaymentStatus) {
			return "", domain.NewPaymentFailed("card authorisation failed, retry or use another card")
		}
	}
	return "", domain.NewPollTimeout("card token not received, retry from the order details later")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
