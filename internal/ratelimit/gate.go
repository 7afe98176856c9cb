// Package ratelimit serializes provider-bound calls so the whole process
// never violates the provider's minimum inter-request spacing.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Gate hands out call slots at most once per interval, process-wide.
// Callers reserve the next free slot under the mutex, so slots are granted
// in Acquire order: a burst of waiters drains FIFO instead of racing.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewGate(interval time.Duration) *Gate {
	return &Gate{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Acquire blocks until the caller's reserved slot arrives or ctx is done.
// A cancelled waiter gives up its slot; later waiters are not delayed by it
// beyond the slot it already reserved.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.interval <= 0 {
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	now := g.now()
	slot := g.next
	if slot.Before(now) {
		slot = now
	}
	g.next = slot.Add(g.interval)
	g.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}
	return g.sleep(ctx, wait)
}

// Interval reports the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
