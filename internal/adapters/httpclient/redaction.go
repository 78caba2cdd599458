package httpclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const redactedValue = "***"

var sensitiveKeys = map[string]struct{}{
	"access_token":  {},
	"accesstoken":   {},
	"refresh_token": {},
	"refreshtoken":  {},
	"password":      {},
	"card_token":    {},
	"cardtoken":     {},
	"secret":        {},
	"authorization": {},
}

func isSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// RedactURLQuery masks sensitive query parameters.
func RedactURLQuery(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}
	query := parsed.Query()
	for key, values := range query {
		if !isSensitiveKey(key) {
			continue
		}
		for i := range values {
			values[i] = redactedValue
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// RedactBody masks sensitive fields at any depth of a JSON body. Non-JSON
// bodies are summarised by size only.
func RedactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Sprintf("<%d bytes>", len(body))
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return fmt.Sprintf("<%d bytes>", len(body))
	}
	return string(out)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for key, inner := range t {
			if isSensitiveKey(key) {
				t[key] = redactedValue
				continue
			}
			t[key] = redactValue(inner)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	}
	return v
}
