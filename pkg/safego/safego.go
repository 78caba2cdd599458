package safego

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Execute runs fn in a new goroutine. A panic inside fn is recovered and
// logged with name and a stack trace instead of crashing the process.
func Execute(ctx context.Context, logger domain.Logger, name string, fn func()) {
	go func() {
		defer recoverAndLog(ctx, logger, name)
		fn()
	}()
}

// Tracked is Execute with wg accounting, so callers can drain background
// work on shutdown or in tests.
func Tracked(ctx context.Context, logger domain.Logger, wg *sync.WaitGroup, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer recoverAndLog(ctx, logger, name)
		fn()
	}()
}

func recoverAndLog(ctx context.Context, logger domain.Logger, name string) {
	r := recover()
	if r == nil {
		return
	}
	// The caller's context may already be gone; logging must still work.
	logCtx := ctx
	if ctx.Err() != nil {
		logCtx = context.WithoutCancel(ctx)
	}
	logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", name),
		"panic_info", fmt.Sprintf("%v", r),
		"stacktrace", string(debug.Stack()),
	)
}
