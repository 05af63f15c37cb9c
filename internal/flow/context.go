package flow

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type (
	loggerKey   struct{}
	observerKey struct{}
)

// WithLogger returns a context whose runnables log through l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Logger returns the logger carried by ctx, or slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// observerSlot hands a context observer to exactly one loop.
type observerSlot struct {
	fn      Observer
	claimed atomic.Bool
}

// WithIterationObserver returns a context whose first loop to start reports
// its iterations to fn, wherever it sits in the runnable tree. Loops that
// start later, nested or concurrent, run unobserved so iteration numbers
// stay unique.
func WithIterationObserver(ctx context.Context, fn Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, &observerSlot{fn: fn})
}

// claimObserver returns the context observer if no loop has taken it yet.
func claimObserver(ctx context.Context) Observer {
	slot, ok := ctx.Value(observerKey{}).(*observerSlot)
	if !ok || slot.fn == nil || !slot.claimed.CompareAndSwap(false, true) {
		return nil
	}
	return slot.fn
}
