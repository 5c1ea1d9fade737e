package core

// pass_limiter.go bounds how many processing passes run at once across all
// sessions. Each pass holds every byte of a file plus its decoded tables in
// memory, so the limit is the server's memory guard.
//
// When all slots are taken, callers wait up to maxWait before failing with
// ErrTooManyPasses.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyPasses is returned when no pass slot frees up within the wait
// limit. Clients should retry after a short delay.
var ErrTooManyPasses = errors.New("too many files being processed, please try again later")

// DefaultMaxConcurrentPasses is the default limit for parallel passes.
const DefaultMaxConcurrentPasses = 8

// DefaultMaxPassWait is how long to wait for a slot before rejecting.
const DefaultMaxPassWait = 10 * time.Second

// PassLimiter controls concurrent pass execution with a weighted semaphore.
type PassLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewPassLimiter creates a limiter that allows at most maxConcurrent passes.
func NewPassLimiter(maxConcurrent int, maxWait time.Duration) *PassLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentPasses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxPassWait
	}
	return &PassLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a pass slot. The caller must call Release when done.
// Returns ErrTooManyPasses on wait timeout, or ctx.Err() if ctx ends first.
func (l *PassLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyPasses
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking and reports whether it succeeded.
func (l *PassLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *PassLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of passes currently running.
func (l *PassLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no pass is running or ctx ends.
// Used during graceful shutdown.
func (l *PassLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PassLimiterStatus is a snapshot of the limiter for monitoring.
type PassLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *PassLimiter) Status() PassLimiterStatus {
	active := l.ActiveCount()
	return PassLimiterStatus{
		Active:        active,
		Available:     int(l.max) - active,
		MaxConcurrent: int(l.max),
	}
}
