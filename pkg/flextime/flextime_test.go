package flextime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormats(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339 fractional", "2024-03-05T14:07:09.250Z", want.Add(250 * time.Millisecond)},
		{"rfc3339", "2024-03-05T14:07:09Z", want},
		{"rfc3339 offset", "2024-03-05T22:07:09+08:00", want},
		{"naive micros", "2024-03-05T14:07:09.000001", want.Add(time.Microsecond)},
		{"naive millis", "2024-03-05T14:07:09.500", want.Add(500 * time.Millisecond)},
		{"naive", "2024-03-05T14:07:09", want},
		{"space separated", "2024-03-05 14:07:09", want},
		{"human", "Mar 05, 2024 at 14:07:09", want},
		{"epoch seconds", "1709647629", want},
		{"epoch millis", "1709647629000", want},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("next tuesday")
	require.Error(t, err)
}

func TestUnmarshalNumberAndNull(t *testing.T) {
	var v struct {
		A Time  `json:"a"`
		B Time  `json:"b"`
		C *Time `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1709647629,"b":1709647629000,"c":null}`), &v))
	assert.Equal(t, int64(1709647629), v.A.Unix())
	assert.Equal(t, int64(1709647629), v.B.Unix())
	assert.Nil(t, v.C)
}

func TestMarshalUsesRFC3339(t *testing.T) {
	b, err := json.Marshal(Time{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-02T03:04:05Z"`, string(b))
}
