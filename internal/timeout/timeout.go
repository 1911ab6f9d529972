// Package timeout races a suspending call against a timer. The losing call
// is abandoned, not cancelled: its goroutine runs to completion and its
// result is discarded.
package timeout

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the timer fires before the call settles.
var ErrTimeout = errors.New("timeout: deadline exceeded")

// Call runs fn and returns its result, or ErrTimeout if d elapses first.
// A non-positive d disables the timer. The context passed to fn is not
// cancelled on timeout.
func Call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	var timer <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timer = t.C
	}

	var zero T
	select {
	case o := <-done:
		return o.val, o.err
	case <-timer:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do is Call for functions without a result value.
func Do(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	_, err := Call(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
