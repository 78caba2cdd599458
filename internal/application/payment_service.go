package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

const gsalaryBase = "/payments/gsalary"

type CreatePaymentRequest struct {
	OrderID  string               `json:"orderId"`
	Method   domain.PaymentMethod `json:"method"`
	Amount   float64              `json:"amount"`
	Currency string               `json:"currency"`
}

type CreatePaymentResponse struct {
	CheckoutURL      string `json:"checkoutUrl"`
	PaymentID        string `json:"paymentId"`
	PaymentMethodID  string `json:"paymentMethodId,omitempty"`
	PaymentRequestID string `json:"paymentRequestId,omitempty"`
}

type PayRequest struct {
	OrderID         string               `json:"orderId"`
	Method          domain.PaymentMethod `json:"method"`
	PaymentMethodID string               `json:"payment_method_id,omitempty"`
	Amount          float64              `json:"amount"`
	Currency        string               `json:"currency"`
}

type PayResponse struct {
	CheckoutURL   string `json:"checkoutUrl,omitempty"`
	PaymentID     string `json:"paymentId"`
	SchemeURL     string `json:"schemeUrl,omitempty"`
	ApplinkURL    string `json:"applinkUrl,omitempty"`
	AppIdentifier string `json:"appIdentifier,omitempty"`
}

// LaunchURL picks the app link, then the scheme URL, then the web checkout.
func (p PayResponse) LaunchURL() string {
	for _, u := range []string{p.ApplinkURL, p.SchemeURL, p.CheckoutURL} {
		if strings.TrimSpace(u) != "" {
			return u
		}
	}
	return ""
}

type QueryPaymentRequest struct {
	PaymentRequestID string `json:"payment_request_id,omitempty"`
	PaymentID        string `json:"payment_id,omitempty"`
}

type Amount struct {
	Currency string  `json:"currency,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

type PaymentResultInfo struct {
	Funding     string `json:"funding,omitempty"`
	CardBrand   string `json:"card_brand,omitempty"`
	CardToken   string `json:"card_token,omitempty"`
	CardBin     string `json:"card_bin,omitempty"`
	LastFour    string `json:"last_four,omitempty"`
	ExpiryMonth string `json:"expiry_month,omitempty"`
	ExpiryYear  string `json:"expiry_year,omitempty"`
}

type QueryPaymentResponse struct {
	PaymentMethodType    string             `json:"payment_method_type,omitempty"`
	PaymentStatus        string             `json:"payment_status"`
	PaymentResultMessage string             `json:"payment_result_message,omitempty"`
	PaymentRequestID     string             `json:"payment_request_id,omitempty"`
	PaymentID            string             `json:"payment_id,omitempty"`
	PaymentAmount        *Amount            `json:"payment_amount,omitempty"`
	PaymentTime          string             `json:"payment_time,omitempty"`
	Captured             bool               `json:"captured,omitempty"`
	ResultInfo           *PaymentResultInfo `json:"payment_result_info,omitempty"`
}

// CardToken returns the tokenised card from the result info, if any.
func (q QueryPaymentResponse) CardToken() string {
	if q.ResultInfo == nil {
		return ""
	}
	return q.ResultInfo.CardToken
}

type ConsultRequest struct {
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	SettlementCurrency string  `json:"settlementCurrency,omitempty"`
	UserRegion         string  `json:"userRegion,omitempty"`
	EnvTerminalType    string  `json:"envTerminalType,omitempty"`
	EnvOsType          string  `json:"envOsType,omitempty"`
}

type PaymentOption struct {
	MethodType     string   `json:"payment_method_type,omitempty"`
	LogoName       string   `json:"payment_method_logo_name,omitempty"`
	LogoURL        string   `json:"payment_method_logo_url,omitempty"`
	Category       string   `json:"payment_method_category,omitempty"`
	Regions        []string `json:"payment_method_region,omitempty"`
	CardFunding    []string `json:"card_funding,omitempty"`
	SupportedCards []struct {
		Brand   string `json:"card_brand,omitempty"`
		LogoURL string `json:"brand_logo_url,omitempty"`
	} `json:"support_card_brands,omitempty"`
}

type ConsultResponse struct {
	PaymentOptions []PaymentOption `json:"payment_options"`
}

type cancelRequest struct {
	PaymentRequestID string `json:"payment_request_id"`
}

type CancelResponse struct {
	PaymentID        string `json:"paymentId"`
	PaymentRequestID string `json:"paymentRequestId"`
	CancelTime       string `json:"cancelTime"`
}

type RefundRequest struct {
	RefundRequestID  string  `json:"refund_request_id"`
	PaymentRequestID string  `json:"payment_request_id"`
	Currency         string  `json:"refund_currency"`
	Amount           float64 `json:"refund_amount"`
	Reason           string  `json:"refund_reason,omitempty"`
}

type RefundResponse struct {
	RefundRequestID  string  `json:"refund_request_id"`
	RefundID         string  `json:"refund_id"`
	PaymentID        string  `json:"payment_id,omitempty"`
	PaymentRequestID string  `json:"payment_request_id,omitempty"`
	Status           string  `json:"refund_status,omitempty"`
	Currency         string  `json:"refund_currency,omitempty"`
	Amount           float64 `json:"refund_amount,omitempty"`
	CreateTime       string  `json:"refund_create_time,omitempty"`
}

type RefundQueryRequest struct {
	RefundRequestID  string `json:"refund_request_id,omitempty"`
	RefundID         string `json:"refund_id,omitempty"`
	PaymentRequestID string `json:"payment_request_id,omitempty"`
}

type RefundQueryResponse struct {
	RefundID      string  `json:"refund_id,omitempty"`
	RefundReqID   string  `json:"refund_request_id,omitempty"`
	Status        string  `json:"refund_status,omitempty"`
	Currency      string  `json:"refund_currency,omitempty"`
	Amount        float64 `json:"refund_amount,omitempty"`
	RefundTime    string  `json:"refund_time,omitempty"`
	ResultMessage string  `json:"refund_result_message,omitempty"`
}

// PaymentService talks to the payment gateway endpoints of the backend.
type PaymentService struct {
	client      *httpclient.Client
	cfgProvider config.Provider
	logger      domain.Logger
}

func NewPaymentService(client *httpclient.Client, cfgProvider config.Provider, logger domain.Logger) *PaymentService {
	if client == nil || cfgProvider == nil || logger == nil {
		panic("nil dependency in NewPaymentService")
	}
	return &PaymentService{client: client, cfgProvider: cfgProvider, logger: logger}
}

// Create opens a checkout session. The mock environment answers locally.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error) {
	if s.cfgProvider.Get().IsMock() {
		return CreatePaymentResponse{
			CheckoutURL:      "https://example.com/checkout?mock=1",
			PaymentID:        "MOCK-PAY-" + req.OrderID,
			PaymentRequestID: "PAY_" + req.OrderID,
		}, nil
	}
	return post[CreatePaymentResponse](ctx, s, "/create", req)
}

func (s *PaymentService) Pay(ctx context.Context, req PayRequest) (PayResponse, error) {
	return post[PayResponse](ctx, s, "/pay", req)
}

func (s *PaymentService) Query(ctx context.Context, req QueryPaymentRequest) (QueryPaymentResponse, error) {
	return post[QueryPaymentResponse](ctx, s, "/query", req)
}

// Consult lists the payment options available for an amount.
func (s *PaymentService) Consult(ctx context.Context, req ConsultRequest) (ConsultResponse, error) {
	if req.SettlementCurrency == "" {
		req.SettlementCurrency = req.Currency
	}
	if req.EnvTerminalType == "" {
		req.EnvTerminalType = "APP"
	}
	return post[ConsultResponse](ctx, s, "/consult", req)
}

func (s *PaymentService) Cancel(ctx context.Context, paymentRequestID string) (CancelResponse, error) {
	return post[CancelResponse](ctx, s, "/cancel", cancelRequest{PaymentRequestID: paymentRequestID})
}

// Refund requests a refund. An empty RefundRequestID is filled with a new uuid
// so retries of the same call stay idempotent on the gateway side.
func (s *PaymentService) Refund(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	if req.RefundRequestID == "" {
		req.RefundRequestID = uuid.NewString()
	}
	return post[RefundResponse](ctx, s, "/refund", req)
}

func (s *PaymentService) QueryRefund(ctx context.Context, req RefundQueryRequest) (RefundQueryResponse, error) {
	return post[RefundQueryResponse](ctx, s, "/refund/query", req)
}

func post[T any](ctx context.Context, s *PaymentService, path string, body any) (T, error) {
	v, err := httpclient.Post[T](ctx, s.client, gsalaryBase+path, body)
	if err != nil {
		return v, fmt.Errorf("payment %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return v, nil
}
