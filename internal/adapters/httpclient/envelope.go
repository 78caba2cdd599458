package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Envelope is the {code, data, msg} wrapper used by the alias endpoints.
type Envelope[T any] struct {
	Code int    `json:"code"`
	Data T      `json:"data"`
	Msg  string `json:"msg"`
}

type envelopeMeta struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// PostEnvelope POSTs body and unwraps the envelope. A code other than 200, or
// a non-zero err_code nested in data, becomes a ServerError.
func PostEnvelope[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (Envelope[T], error) {
	data, err := c.do(ctx, http.MethodPost, path, body, opts)
	if err != nil {
		return Envelope[T]{}, err
	}
	return decodeEnvelope[T](data, c.conn)
}

func decodeEnvelope[T any](data []byte, conn domain.Connectivity) (Envelope[T], error) {
	var meta envelopeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Envelope[T]{}, domain.NewDecodingError(err)
	}
	if meta.Code != http.StatusOK {
		conn.ReportBackendReachable(meta.Code < 500)
		return Envelope[T]{}, domain.NewServerError(meta.Code, meta.Msg)
	}
	if code, msg, ok := nestedError(meta.Data); ok {
		if msg == "" {
			msg = meta.Msg
		}
		return Envelope[T]{}, domain.NewServerError(code, msg)
	}

	var env Envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope[T]{}, domain.NewDecodingError(err)
	}
	return env, nil
}

// nestedError reads {"err_code": 1003, "err_msg": "..."} from an envelope's
// data object. err_code may be a number or a numeric string.
func nestedError(raw json.RawMessage) (int, string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return 0, "", false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, "", false
	}
	code := 0
	switch v := obj["err_code"].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, "", false
		}
		code = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, "", false
		}
		code = n
	default:
		return 0, "", false
	}
	if code == 0 {
		return 0, "", false
	}
	msg, _ := obj["err_msg"].(string)
	return code, msg, true
}
