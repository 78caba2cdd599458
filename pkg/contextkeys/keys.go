package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey carries the Request-Id of the outbound call or debug request.
	RequestIDKey contextKey = "request_id"

	// UserIDKey carries the id of the signed-in user, when there is one.
	UserIDKey contextKey = "user_id"

	// CacheKeyKey carries the cache or coordinator key an operation works on.
	CacheKeyKey contextKey = "cache_key"

	// OrderIDKey carries the order id during checkout.
	OrderIDKey contextKey = "order_id"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
