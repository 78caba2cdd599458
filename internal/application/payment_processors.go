package application

import (
	"context"
	"fmt"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Processor drives one payment method from session creation to a settled status.
type Processor interface {
	Start(ctx context.Context, order domain.PaymentOrder) (domain.PaymentStatus, error)
}

// Gateway is the subset of PaymentService the processors need.
type Gateway interface {
	PaymentQuerier
	Create(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error)
	Pay(ctx context.Context, req PayRequest) (PayResponse, error)
}

// Processors builds the processor for each payment method.
type Processors struct {
	gateway     Gateway
	poller      *Poller
	opener      domain.URLOpener
	prefs       *Preferences
	cfgProvider config.Provider
	logger      domain.Logger
}

func NewProcessors(gateway Gateway, poller *Poller, opener domain.URLOpener, prefs *Preferences, cfgProvider config.Provider, logger domain.Logger) *Processors {
	if gateway == nil || poller == nil || opener == nil || prefs == nil || cfgProvider == nil || logger == nil {
		panic("nil dependency in NewProcessors")
	}
	return &Processors{
		gateway:     gateway,
		poller:      poller,
		opener:      opener,
		prefs:       prefs,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// For returns the processor for method.
func (p *Processors) For(method domain.PaymentMethod) (Processor, error) {
	switch method {
	case domain.PaymentAlipay, domain.PaymentPayPal:
		return &redirectProcessor{p: p, method: method}, nil
	case domain.PaymentCard:
		return &cardProcessor{p: p}, nil
	case domain.PaymentApplePay:
		return &applePayProcessor{p: p}, nil
	case domain.PaymentGooglePay:
		return nil, domain.NewInvalidRequest("google pay is not supported", nil)
	}
	return nil, domain.NewInvalidRequest(fmt.Sprintf("unknown payment method %q", method), nil)
}

func (p *Processors) mock() bool {
	return p.cfgProvider.Get().IsMock()
}

func (p *Processors) create(ctx context.Context, order domain.PaymentOrder, method domain.PaymentMethod) (CreatePaymentResponse, error) {
	return p.gateway.Create(ctx, CreatePaymentRequest{
		OrderID:  order.ID,
		Method:   method,
		Amount:   order.Amount,
		Currency: p.prefs.Currency(order.Currency),
	})
}

func (p *Processors) pay(ctx context.Context, order domain.PaymentOrder, method domain.PaymentMethod, paymentMethodID string) (PayResponse, error) {
	return p.gateway.Pay(ctx, PayRequest{
		OrderID:         order.ID,
		Method:          method,
		PaymentMethodID: paymentMethodID,
		Amount:          order.Amount,
		Currency:        p.prefs.Currency(order.Currency),
	})
}

func (p *Processors) open(ctx context.Context, rawURL string) {
	if rawURL == "" {
		return
	}
	p.opener.Open(ctx, rawURL)
}

// redirectProcessor serves Alipay and PayPal: open the hosted checkout and wait.
type redirectProcessor struct {
	p      *Processors
	method domain.PaymentMethod
}

func (r *redirectProcessor) Start(ctx context.Context, order domain.PaymentOrder) (domain.PaymentStatus, error) {
	session, err := r.p.create(ctx, order, r.method)
	if err != nil {
		return "", err
	}
	if r.p.mock() {
		return domain.PaymentPaid, nil
	}
	r.p.open(ctx, session.CheckoutURL)
	return r.p.poller.WaitUntilPaid(ctx, QueryPaymentRequest{
		PaymentRequestID: session.PaymentRequestID,
		PaymentID:        session.PaymentID,
	})
}

// cardProcessor authorises the card first, then charges the returned token.
type cardProcessor struct {
	p *Processors
}

func (c *cardProcessor) Start(ctx context.Context, order domain.PaymentOrder) (domain.PaymentStatus, error) {
	session, err := c.p.create(ctx, order, domain.PaymentCard)
	if err != nil {
		return "", err
	}
	c.p.open(ctx, session.CheckoutURL)
	if c.p.mock() {
		return domain.PaymentPaid, nil
	}
	token, err := c.p.poller.WaitForCardToken(ctx, QueryPaymentRequest{
		PaymentRequestID: session.PaymentRequestID,
		PaymentID:        session.PaymentID,
	})
	if err != nil {
		return "", err
	}
	charge, err := c.p.pay(ctx, order, domain.PaymentCard, token)
	if err != nil {
		return "", err
	}
	c.p.open(ctx, charge.LaunchURL())
	return c.p.poller.WaitUntilPaid(ctx, QueryPaymentRequest{
		PaymentRequestID: session.PaymentRequestID,
		PaymentID:        charge.PaymentID,
	})
}

type applePayProcessor struct {
	p *Processors
}

func (a *applePayProcessor) Start(ctx context.Context, order domain.PaymentOrder) (domain.PaymentStatus, error) {
	session, err := a.p.create(ctx, order, domain.PaymentApplePay)
	if err != nil {
		return "", err
	}
	if a.p.mock() {
		return domain.PaymentPaid, nil
	}
	charge, err := a.p.pay(ctx, order, domain.PaymentApplePay, "")
	if err != nil {
		return "", err
	}
	a.p.open(ctx, charge.LaunchURL())
	return a.p.poller.WaitUntilPaid(ctx, QueryPaymentRequest{
		PaymentRequestID: session.PaymentRequestID,
		PaymentID:        charge.PaymentID,
	})
}
