// Package timer implements the deadline-verification timer discipline used
// throughout the daemon (watchdog notifications, control-session
// deadlines, connector poll cadence): every fire re-checks the recorded
// deadline against wall-clock time before acting, and rearms without
// advancing the deadline on a spurious wake.
package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCancelled is delivered to a callback's context when the timer is
// cancelled; callbacks must treat it as terminal and never retry.
var ErrCancelled = errors.New("timer: cancelled")

// runProtected calls fn and recovers a panic from it, so a single bad
// fire of one connector's timer never takes down the process (and every
// other connector's timer with it).
func runProtected(ctx context.Context, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("timer: recovered panic in scheduled callback", "panic", r)
		}
	}()
	_ = fn(ctx)
}

// Every schedules fn to run every period, starting after the first period
// elapses. It returns a cancel function; calling it stops future fires and
// is safe to call more than once. fn receives a context that is done with
// ErrCancelled once Cancel is called, so a long-running fn can observe
// cancellation mid-run.
func Every(period time.Duration, fn func(context.Context) error) (cancel func()) {
	ctx, cancelCtx := context.WithCancelCause(context.Background())
	var once sync.Once
	stop := make(chan struct{})

	go func() {
		deadline := time.Now().Add(period)
		t := time.NewTimer(period)
		defer t.Stop()

		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if time.Now().Before(deadline) {
					// Spurious wake: rearm without advancing the deadline.
					t.Reset(time.Until(deadline))
					continue
				}
				if ctx.Err() == nil {
					runProtected(ctx, fn)
				}
				deadline = deadline.Add(period)
				next := time.Until(deadline)
				if next <= 0 {
					next = time.Microsecond
					deadline = time.Now().Add(period)
				}
				t.Reset(next)
			}
		}
	}()

	return func() {
		once.Do(func() {
			cancelCtx(ErrCancelled)
			close(stop)
		})
	}
}

// After schedules fn to run once after d, applying the same
// deadline-verification discipline as Every. Returns a cancel function.
func After(d time.Duration, fn func(context.Context) error) (cancel func()) {
	ctx, cancelCtx := context.WithCancelCause(context.Background())
	var once sync.Once
	stop := make(chan struct{})

	go func() {
		deadline := time.Now().Add(d)
		t := time.NewTimer(d)
		defer t.Stop()

		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if time.Now().Before(deadline) {
					t.Reset(time.Until(deadline))
					continue
				}
				if ctx.Err() == nil {
					runProtected(ctx, fn)
				}
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			cancelCtx(ErrCancelled)
			close(stop)
		})
	}
}
