package context

import (
	"context"
	"testing"
	"time"
)

// time left for cleanups after the context is done.
const cleanupMargin = time.Second

// WithTest derives a context which ends before the deadline of the test, and is canceled when the test finishes.
func WithTest(ctx context.Context, t *testing.T) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if deadline, ok := t.Deadline(); ok {
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(-cleanupMargin))
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	t.Cleanup(cancel)
	return ctx, cancel
}
