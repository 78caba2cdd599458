package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind is the closed set of failure classes produced by the data core.
type ErrorKind string

const (
	KindInvalidRequest     ErrorKind = "InvalidRequest"     // malformed URL or params, never retried
	KindOffline            ErrorKind = "Offline"            // no connectivity, no work queued
	KindTransientTransport ErrorKind = "TransientTransport" // network hiccup, GET retries once
	KindBadStatus          ErrorKind = "BadStatus"          // non-2xx without a readable message
	KindServerError        ErrorKind = "ServerError"        // non-2xx or envelope failure with a message
	KindDecodingError      ErrorKind = "DecodingError"      // response shape mismatch
	KindSessionExpired     ErrorKind = "SessionExpired"     // 401 after failed or absent refresh
	KindPollTimeout        ErrorKind = "PollTimeout"        // payment outcome unknown at deadline
	KindPaymentFailed      ErrorKind = "PaymentFailed"      // payment provider reported a terminal failure
)

// Error is the typed error surfaced by the client, coordinator and payment flows.
type Error struct {
	Kind ErrorKind
	// Status is the HTTP status when one was received.
	Status int
	// Code is the server or envelope business code.
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != 0 {
		fmt.Fprintf(&b, " (%d)", e.Code)
	} else if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, ErrOffline) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == 0 && t.Status == 0 && t.Message == "" && t.Err == nil
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrOffline        = &Error{Kind: KindOffline}
	ErrSessionExpired = &Error{Kind: KindSessionExpired}
	ErrPollTimeout    = &Error{Kind: KindPollTimeout}
)

func NewInvalidRequest(msg string, err error) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg, Err: err}
}

func NewOffline() *Error { return &Error{Kind: KindOffline} }

func NewTransientTransport(err error) *Error {
	return &Error{Kind: KindTransientTransport, Err: err}
}

func NewBadStatus(status int) *Error {
	return &Error{Kind: KindBadStatus, Status: status}
}

// NewServerError carries a server-provided message. code is the HTTP status
// or the envelope business code, whichever produced the failure.
func NewServerError(code int, msg string) *Error {
	return &Error{Kind: KindServerError, Code: code, Message: msg}
}

func NewDecodingError(err error) *Error {
	return &Error{Kind: KindDecodingError, Err: err}
}

func NewSessionExpired(status int, msg string) *Error {
	return &Error{Kind: KindSessionExpired, Status: status, Message: msg}
}

func NewPollTimeout(msg string) *Error {
	return &Error{Kind: KindPollTimeout, Message: msg}
}

func NewPaymentFailed(msg string) *Error {
	return &Error{Kind: KindPaymentFailed, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether a user-initiated retry is worth suggesting.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindOffline, KindTransientTransport:
		return true
	}
	return false
}

// Categorize maps a failure to a coarse reason category and optional code for
// payment events. Typed errors are classified by kind; the free-text reason is
// only consulted for errors raised outside this module.
func Categorize(err error, reason string) (category, code string) {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindOffline:
			return "network", "offline"
		case KindTransientTransport:
			return "network", "transient"
		case KindBadStatus:
			return "network", fmt.Sprintf("http_%d", e.Status)
		case KindServerError:
			return "server", fmt.Sprintf("srv_%d", e.Code)
		case KindSessionExpired:
			return "server", "session_expired"
		case KindDecodingError:
			return "client", "decoding"
		case KindInvalidRequest:
			return "client", "invalid_request"
		case KindPollTimeout:
			return "sdk", "poll_timeout"
		case KindPaymentFailed:
			return "sdk", "payment_failed"
		}
	}

	text := strings.ToLower(reason)
	if text == "" && err != nil {
		text = strings.ToLower(err.Error())
	}
	switch {
	case containsAny(text, "余额", "insufficient", "balance"):
		return "balance", ""
	case containsAny(text, "sdk", "未集成"):
		return "sdk", ""
	case containsAny(text, "服务器", "上游", "server"):
		return "server", ""
	case containsAny(text, "网络", "offline", "timeout", "connect"):
		return "network", ""
	}
	return "unknown", ""
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ErrorResponse is the JSON error body written by the debug HTTP endpoints.
type ErrorResponse struct {
	Code    ErrorKind `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorKind, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // best effort
}
