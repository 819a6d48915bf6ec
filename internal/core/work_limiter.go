package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyUploads means every processing slot stayed busy for the whole
// wait. Clients should retry shortly.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

const (
	defaultWorkSlots = 5
	defaultWorkWait  = 30 * time.Second
)

// WorkLimiter caps how many tables are parsed or serialized at once. Both
// hold a whole file in memory, so the cap bounds peak memory rather than
// CPU.
type WorkLimiter struct {
	sem   *semaphore.Weighted
	slots int64
	wait  time.Duration
	busy  atomic.Int64
}

// NewWorkLimiter admits slots concurrent jobs; a job that cannot start
// within wait fails with ErrTooManyUploads. Non-positive arguments take
// the defaults of 5 slots and 30s.
func NewWorkLimiter(slots int, wait time.Duration) *WorkLimiter {
	if slots <= 0 {
		slots = defaultWorkSlots
	}
	if wait <= 0 {
		wait = defaultWorkWait
	}
	return &WorkLimiter{
		sem:   semaphore.NewWeighted(int64(slots)),
		slots: int64(slots),
		wait:  wait,
	}
}

// Do runs job once a slot is free. Cancellation of ctx is returned as is;
// running out of wait time is ErrTooManyUploads.
func (l *WorkLimiter) Do(ctx context.Context, job func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	err := l.sem.Acquire(waitCtx, 1)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrTooManyUploads
	}

	l.busy.Add(1)
	defer func() {
		l.busy.Add(-1)
		l.sem.Release(1)
	}()
	return job()
}

// WaitForDrain blocks until no job is running or ctx is done. Jobs
// submitted meanwhile queue behind it.
func (l *WorkLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.slots); err != nil {
		return err
	}
	l.sem.Release(l.slots)
	return nil
}

// LimiterStatus is a point-in-time view of a WorkLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports slot usage for the health endpoint.
func (l *WorkLimiter) Status() LimiterStatus {
	busy := int(l.busy.Load())
	return LimiterStatus{
		Active:        busy,
		Available:     int(l.slots) - busy,
		MaxConcurrent: int(l.slots),
	}
}
