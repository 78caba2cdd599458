package launcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/simigo/client/datacore/internal/adapters/logger"
)

func TestLogOpenerForwardsValidLinks(t *testing.T) {
	o := NewLogOpener(logger.NewNop())
	var opened []string
	o.Attach(func(_ context.Context, rawURL string) { opened = append(opened, rawURL) })

	o.Open(context.Background(), "https://pay.example.com/checkout?id=1")
	o.Open(context.Background(), "alipays://platformapi/startapp")
	o.Open(context.Background(), "not a url")
	o.Open(context.Background(), "%zz")

	assert.Equal(t, []string{"https://pay.example.com/checkout?id=1", "alipays://platformapi/startapp"}, opened)
}

func TestLogOpenerWithoutHandler(t *testing.T) {
	o := NewLogOpener(logger.NewNop())
	assert.NotPanics(t, func() { o.Open(context.Background(), "https://example.com") })
}
