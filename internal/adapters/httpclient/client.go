package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/adapters/metrics"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

const tracerName = "gitlab.com/simigo/client/datacore/httpclient"

// LanguageSource supplies the X-Language header value.
type LanguageSource interface {
	Language() string
}

// Doer is the subset of *http.Client the client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks JSON to the storefront backend. It fails fast when offline,
// retries idempotent reads once on transient transport errors, and refreshes
// the access token once on 401.
type Client struct {
	cfgProvider config.Provider
	creds       domain.CredentialStore
	conn        domain.Connectivity
	events      domain.EventPublisher
	lang        LanguageSource
	logger      domain.Logger

	httpClient Doer
	tracer     trace.Tracer
	sleep      func(ctx context.Context, d time.Duration) error
	refreshes  singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

// WithSleep replaces the retry back-off wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient panics on nil required dependencies. lang may be nil, in which
// case the configured default language is sent.
func NewClient(
	cfgProvider config.Provider,
	creds domain.CredentialStore,
	conn domain.Connectivity,
	events domain.EventPublisher,
	lang LanguageSource,
	logger domain.Logger,
	opts ...Option,
) *Client {
	if cfgProvider == nil {
		panic("cfgProvider cannot be nil in NewClient")
	}
	if creds == nil {
		panic("credential store cannot be nil in NewClient")
	}
	if conn == nil {
		panic("connectivity cannot be nil in NewClient")
	}
	if events == nil {
		panic("event publisher cannot be nil in NewClient")
	}
	if logger == nil {
		panic("logger cannot be nil in NewClient")
	}
	c := &Client{
		cfgProvider: cfgProvider,
		creds:       creds,
		conn:        conn,
		events:      events,
		lang:        lang,
		logger:      logger,
		httpClient:  &http.Client{Timeout: cfgProvider.Get().RequestTimeout()},
		tracer:      otel.Tracer(tracerName),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type callOptions struct {
	requestID string
	query     map[string]string
}

// CallOption tunes a single request.
type CallOption func(*callOptions)

// WithRequestID sends id as Request-Id instead of a generated one.
func WithRequestID(id string) CallOption {
	return func(o *callOptions) { o.requestID = id }
}

// WithQuery adds query parameters. Empty values are dropped.
func WithQuery(query map[string]string) CallOption {
	return func(o *callOptions) {
		if o.query == nil {
			o.query = make(map[string]string, len(query))
		}
		for k, v := range query {
			if v != "" {
				o.query[k] = v
			}
		}
	}
}

// request is a fully built call that can be sent more than once.
type request struct {
	method    string
	path      string
	url       string
	body      []byte
	requestID string
	noAuth    bool
}

// do runs the call pipeline and returns the 2xx body.
func (c *Client) do(ctx context.Context, method, path string, body any, opts []CallOption) (_ []byte, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	status := 0
	defer func() {
		outcome := metrics.StatusClass(status)
		if err != nil {
			if kind := domain.KindOf(err); kind != "" {
				outcome = string(kind)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		span.End()
		metrics.ObserveHTTPRequest(method, outcome, time.Since(start))
	}()

	if !c.conn.IsOnline() {
		c.conn.ProbeConnectivity()
		return nil, domain.NewOffline()
	}

	o := callOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	req, err := c.build(method, path, body, o)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.id", req.requestID))

	var data []byte
	status, data, err = c.send(ctx, req, method == http.MethodGet)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		switch rerr := c.refresh(ctx); {
		case rerr == nil:
			metrics.ObserveRetry("refresh")
			status, data, err = c.send(ctx, req, false)
			if err != nil {
				return nil, err
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !errors.Is(rerr, errRefreshRejected):
			return nil, fmt.Errorf("refresh access token: %w", rerr)
		}
	}

	if status < 200 || status >= 300 {
		return nil, c.statusError(ctx, status, data)
	}
	c.conn.ReportBackendReachable(true)
	return data, nil
}

func (c *Client) build(method, path string, body any, o callOptions) (*request, error) {
	rawURL, err := c.buildURL(path, o.query)
	if err != nil {
		return nil, err
	}
	req := &request{
		method:    method,
		path:      path,
		url:       rawURL,
		requestID: o.requestID,
	}
	if req.requestID == "" {
		req.requestID = strings.ToLower(uuid.NewString())
	}
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewInvalidRequest("encode request body", err)
		}
		req.body = encoded
	}
	return req, nil
}

func (c *Client) buildURL(path string, query map[string]string) (string, error) {
	base := strings.TrimRight(c.cfgProvider.Get().API.BaseURL, "/")
	u, err := url.Parse(base + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", domain.NewInvalidRequest("invalid url", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", domain.NewInvalidRequest(fmt.Sprintf("invalid url %q", u.String()), nil)
	}
	if len(query) > 0 {
		values := u.Query()
		for key, value := range query {
			values.Set(key, value)
		}
		u.RawQuery = values.Encode()
	}
	return u.String(), nil
}

// send performs one exchange, with a single delayed retry for idempotent
// reads that hit a transient transport error while the device is online.
func (c *Client) send(ctx context.Context, req *request, retry bool) (int, []byte, error) {
	status, data, err := c.roundTrip(ctx, req)
	if err == nil {
		return status, data, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, nil, ctxErr
	}
	if retry && c.conn.IsOnline() && IsTransient(err) {
		metrics.ObserveRetry("transient")
		c.logger.Debug(ctx, "Retrying after transient transport error", "path", req.path, "error", err)
		if err := c.sleep(ctx, c.cfgProvider.Get().RetryDelay()); err != nil {
			return 0, nil, err
		}
		status, data, err = c.roundTrip(ctx, req)
		if err == nil {
			return status, data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
	}
	return 0, nil, c.transportError(err)
}

func (c *Client) transportError(err error) error {
	if !c.conn.IsOnline() {
		return domain.NewOffline()
	}
	c.conn.ReportBackendReachable(false)
	if IsTransient(err) {
		return domain.NewTransientTransport(err)
	}
	return fmt.Errorf("send request: %w", err)
}

func (c *Client) roundTrip(ctx context.Context, req *request) (int, []byte, error) {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, bodyReader)
	if err != nil {
		return 0, nil, domain.NewInvalidRequest("build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Request-Id", req.requestID)
	httpReq.Header.Set("X-Language", c.language())
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.noAuth {
		if creds, err := c.creds.Get(ctx); err == nil && creds.AccessToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
	}

	c.logger.Debug(ctx, "http request",
		"method", req.method,
		"url", RedactURLQuery(req.url),
		"request_id", req.requestID,
		"body", RedactBody(req.body),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug(ctx, "http response",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"body", RedactBody(data),
	)
	return resp.StatusCode, data, nil
}

func (c *Client) language() string {
	if c.lang != nil {
		if lang := c.lang.Language(); lang != "" {
			return lang
		}
	}
	return c.cfgProvider.Get().API.DefaultLanguage
}

func (c *Client) statusError(ctx context.Context, status int, data []byte) error {
	if status >= 500 {
		c.conn.ReportBackendReachable(false)
	}
	msg := ExtractServerMessage(data)
	if status == http.StatusUnauthorized {
		reason := msg
		if reason == "" {
			reason = "401"
		}
		c.publish(ctx, domain.Event{
			Type:       domain.EventSessionExpired,
			Attributes: map[string]string{"reason": reason},
			OccurredAt: time.Now(),
		})
		return domain.NewSessionExpired(status, msg)
	}
	if msg != "" {
		return domain.NewServerError(status, msg)
	}
	return domain.NewBadStatus(status)
}

func (c *Client) publish(ctx context.Context, event domain.Event) {
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn(ctx, "Failed to publish event", "type", string(event.Type), "error", err)
	}
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

// errRefreshRejected means there is no usable refresh token. Only this
// outcome turns a 401 into an expired session.
var errRefreshRejected = errors.New("refresh token rejected")

// refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share one exchange, which runs detached from any single caller so
// that one caller giving up does not fail it for the rest.
func (c *Client) refresh(ctx context.Context) error {
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		timeout := c.cfgProvider.Get().RequestTimeout()
		if timeout <= 0 {
			timeout = defaultRefreshTimeout
		}
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return nil, c.exchangeRefreshToken(exCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

const defaultRefreshTimeout = 30 * time.Second

func (c *Client) exchangeRefreshToken(ctx context.Context) error {
	creds, err := c.creds.Get(ctx)
	if errors.Is(err, domain.ErrNoCredentials) {
		return errRefreshRejected
	}
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		return errRefreshRejected
	}
	req, err := c.build(http.MethodPost, c.cfgProvider.Get().API.RefreshPath, refreshBody{RefreshToken: creds.RefreshToken}, callOptions{})
	if err != nil {
		return err
	}
	req.noAuth = true

	status, data, err := c.roundTrip(ctx, req)
	if err != nil {
		c.logger.Warn(ctx, "Token refresh failed", "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return c.transportError(err)
	}
	switch {
	case status >= 500:
		c.conn.ReportBackendReachable(false)
		c.logger.Warn(ctx, "Token refresh hit a server error", "status", status)
		return domain.NewBadStatus(status)
	case status < 200 || status >= 300:
		c.logger.Info(ctx, "Token refresh rejected", "status", status)
		return errRefreshRejected
	}
	var auth domain.AuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		return domain.NewDecodingError(err)
	}
	if auth.AccessToken == "" {
		return domain.NewDecodingError(errors.New("refresh response has no access token"))
	}
	if err := c.creds.Set(ctx, domain.Credentials{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}); err != nil {
		return fmt.Errorf("store refreshed credentials: %w", err)
	}
	c.logger.Info(ctx, "Access token refreshed", "user_id", auth.User.ID)
	return nil
}

// ExtractServerMessage returns the first string among detail, message and
// error in a JSON object body, or "".
func ExtractServerMessage(data []byte) string {
	if len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := obj[key].(string); ok {
			return s
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errEmptyBody marks a 2xx response with no content for a non-empty target.
var errEmptyBody = errors.New("empty response body")
