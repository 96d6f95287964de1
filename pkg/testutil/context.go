package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"checkpoint/pkg/requestcontext"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FixedTimeContext returns a background context pinned to t, the way the
// requesttime middleware pins it for HTTP requests.
func FixedTimeContext(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
