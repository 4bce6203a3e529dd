package core

// convert_limiter.go caps how many conversion batches the HTTP API runs at
// once. Each batch is itself sequential; the limit only bounds how many
// batches (and therefore photo fetches and open files) are in flight.
//
// When all slots are taken, new requests wait up to maxWait before failing
// with ErrTooManyConversions. WaitForDrain supports graceful shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyConversions is returned when all conversion slots are occupied
// and the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyConversions = errors.New("too many conversions in progress, please try again later")

// DefaultMaxConcurrentConversions is the default limit for parallel batches.
const DefaultMaxConcurrentConversions = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ConvertLimiter controls concurrent conversion batches.
type ConvertLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewConvertLimiter creates a limiter that allows at most maxConcurrent
// simultaneous batches. Non-positive arguments select the defaults.
func NewConvertLimiter(maxConcurrent int, maxWait time.Duration) *ConvertLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentConversions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ConvertLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. It returns ErrTooManyConversions when maxWait
// passes, or ctx.Err() when ctx ends first.
// The caller MUST call Release() when the batch completes (use defer).
func (l *ConvertLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyConversions
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *ConvertLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release releases a previously acquired slot.
func (l *ConvertLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of running batches.
func (l *ConvertLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the configured limit.
func (l *ConvertLimiter) MaxConcurrent() int {
	return l.max
}

// WaitForDrain blocks until no batch is running or ctx ends.
func (l *ConvertLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
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

// ConvertLimiterStatus is a snapshot of the limiter.
type ConvertLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ConvertLimiter) Status() ConvertLimiterStatus {
	active := l.ActiveCount()
	return ConvertLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
