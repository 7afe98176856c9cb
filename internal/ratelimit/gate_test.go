package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateSpacesSlots(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	var slept []time.Duration
	g := NewGate(3 * time.Second)
	g.now = func() time.Time { return now }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, g.Acquire(context.Background()))
	require.Empty(t, slept)

	require.NoError(t, g.Acquire(context.Background()))
	require.NoError(t, g.Acquire(context.Background()))
	require.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, slept)

	// After the interval has elapsed the next call goes through immediately.
	now = base.Add(10 * time.Second)
	slept = nil
	require.NoError(t, g.Acquire(context.Background()))
	require.Empty(t, slept)
}

func TestGateWindowNeverExceeded(t *testing.T) {
	const n = 20
	interval := 10 * time.Millisecond
	g := NewGate(interval)

	var mu sync.Mutex
	var grants []time.Time
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, g.Acquire(context.Background()))
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, n)
	mu.Lock()
	defer mu.Unlock()
	for i := range grants {
		for j := range grants {
			if i == j {
				continue
			}
			d := grants[i].Sub(grants[j])
			if d < 0 {
				d = -d
			}
			if d < interval/2 {
				// Two grants closer than half an interval would mean the
				// gate collapsed slots; allow scheduler jitter up to that.
				t.Fatalf("grants %d and %d only %v apart", i, j, d)
			}
		}
	}
}

func TestGateAcquireCancelled(t *testing.T) {
	g := NewGate(time.Hour)
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Acquire(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not honor cancellation")
	}
}

func TestGateZeroIntervalPassthrough(t *testing.T) {
	g := NewGate(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Acquire(context.Background()))
	}
}
