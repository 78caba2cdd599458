// Package flextime decodes the assortment of timestamp formats the backend
// and its upstream providers emit.
package flextime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// millisThreshold separates epoch seconds from epoch milliseconds.
const millisThreshold = 1e12

// layouts are tried in order. Layouts without a zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Jan 02, 2006 at 15:04:05",
}

// Time is a time.Time that unmarshals from any supported format and
// marshals as RFC3339Nano.
type Time struct {
	time.Time
}

// Parse decodes s using the supported layouts, then as a numeric epoch.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromEpoch(f), nil
	}
	return time.Time{}, fmt.Errorf("flextime: unsupported date %q", s)
}

// FromEpoch converts epoch seconds, or milliseconds above 1e12, to UTC.
func FromEpoch(v float64) time.Time {
	if v > millisThreshold {
		v /= 1000
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("flextime: unsupported date %s", data)
	}
	t.Time = FromEpoch(f)
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
