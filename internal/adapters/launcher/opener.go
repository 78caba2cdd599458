package launcher

import (
	"context"
	"net/url"
	"sync"

	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

// LogOpener hands checkout links to whoever embeds the data core. Without a
// platform handler attached it only logs the link, with secrets redacted.
type LogOpener struct {
	logger domain.Logger

	mu      sync.RWMutex
	handler func(ctx context.Context, rawURL string)
}

var _ domain.URLOpener = (*LogOpener)(nil)

func NewLogOpener(logger domain.Logger) *LogOpener {
	if logger == nil {
		panic("logger cannot be nil in NewLogOpener")
	}
	return &LogOpener{logger: logger}
}

// Attach installs the platform handler. It must return without waiting for
// the user to finish the flow.
func (o *LogOpener) Attach(handler func(ctx context.Context, rawURL string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = handler
}

func (o *LogOpener) Open(ctx context.Context, rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		o.logger.Warn(ctx, "Ignoring malformed checkout link", "url", httpclient.RedactURLQuery(rawURL))
		return
	}
	o.logger.Info(ctx, "Opening checkout link", "scheme", u.Scheme, "host", u.Host, "url", httpclient.RedactURLQuery(rawURL))

	o.mu.RLock()
	h := o.handler
	o.mu.RUnlock()
	if h != nil {
		h(ctx, rawURL)
	}
}
