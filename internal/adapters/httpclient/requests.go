package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Get issues a GET and decodes the JSON response into T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...CallOption) (T, error) {
	return call[T](ctx, c, http.MethodGet, path, nil, opts)
}

// Post issues a POST with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (T, error) {
	return call[T](ctx, c, http.MethodPost, path, body, opts)
}

func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (T, error) {
	return call[T](ctx, c, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE with an optional JSON body.
func Delete[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (T, error) {
	return call[T](ctx, c, http.MethodDelete, path, body, opts)
}

// DeleteNoContent issues a DELETE and ignores any response body.
func DeleteNoContent(ctx context.Context, c *Client, path string, opts ...CallOption) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, opts)
	return err
}

func call[T any](ctx context.Context, c *Client, method, path string, body any, opts []CallOption) (T, error) {
	var zero T
	data, err := c.do(ctx, method, path, body, opts)
	if err != nil {
		return zero, err
	}
	return decode[T](data)
}

func decode[T any](data []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(data)) == 0 {
		if _, ok := any(out).(struct{}); ok {
			return out, nil
		}
		return out, domain.NewDecodingError(errEmptyBody)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, domain.NewDecodingError(err)
	}
	return out, nil
}
