package domain

import (
	"context"
)

// Logger is the structured logger used across the data core.
// The first argument is always the call context so request and user ids
// stored by pkg/contextkeys end up on every line.
// Fields are passed as alternating key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // exits the process after logging

	// With returns a child logger carrying the given key/value pairs.
	With(fields ...any) Logger
}
