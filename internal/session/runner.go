package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrCallTimeout is returned when a model or dispatch call does not
	// finish within the configured timeout.
	ErrCallTimeout = errors.New("call timed out")

	// ErrStaleResult is returned when a call finishes after the draft it
	// was started for has been replaced or discarded.
	ErrStaleResult = errors.New("result belongs to a draft that is no longer current")
)

// runner executes blocking calls one at a time on a worker goroutine. Each
// call is tagged with the draft version it was started for and its result
// is dropped if that version is no longer current.
type runner struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	version atomic.Uint64
}

func newRunner(timeout time.Duration) *runner {
	return &runner{sem: semaphore.NewWeighted(1), timeout: timeout}
}

// current returns the version of the draft on screen.
func (r *runner) current() uint64 {
	return r.version.Load()
}

// advance marks the current draft as replaced or discarded.
func (r *runner) advance() uint64 {
	return r.version.Add(1)
}

type outcome[T any] struct {
	val T
	err error
}

// call runs fn with a deadline and waits for it. On timeout the caller gets
// ErrCallTimeout straight away while the worker keeps the semaphore until
// fn returns, so a slow call never overlaps the next one.
func call[T any](ctx context.Context, r *runner, version uint64, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if r.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer r.sem.Release(1)
		v, err := fn(callCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case out := <-done:
		return accept(ctx, callCtx, r, version, out)
	case <-callCtx.Done():
	}

	// fn may have finished right at the deadline.
	select {
	case out := <-done:
		return accept(ctx, callCtx, r, version, out)
	default:
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, fmt.Errorf("%w after %s", ErrCallTimeout, r.timeout)
}

// accept maps a finished call to its result, converting deadline errors to
// ErrCallTimeout and dropping results for a superseded draft.
func accept[T any](ctx, callCtx context.Context, r *runner, version uint64, out outcome[T]) (T, error) {
	var zero T
	if r.current() != version {
		return zero, ErrStaleResult
	}
	if out.err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s: %w", ErrCallTimeout, r.timeout, out.err)
		}
		return zero, out.err
	}
	return out.val, nil
}
