package gate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalCounterIncrements(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLocalCounterAt(func() time.Time { return now })
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		count, _, err := c.IncrementAndCount(ctx, "k", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Errorf("count = %d, want %d", count, want)
		}
	}
}

func TestLocalCounterWindowRollover(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLocalCounterAt(func() time.Time { return now })
	ctx := context.Background()

	c.IncrementAndCount(ctx, "k", time.Hour)
	c.IncrementAndCount(ctx, "k", time.Hour)

	// Advance into the next bucket; the next increment starts a fresh count.
	now = now.Add(time.Hour + time.Second)
	count, reset, _ := c.IncrementAndCount(ctx, "k", time.Hour)
	if count != 1 {
		t.Errorf("count after rollover = %d, want 1", count)
	}
	if reset != time.Hour-time.Second {
		t.Errorf("reset after rollover = %v, want %v", reset, time.Hour-time.Second)
	}
}

func TestLocalCounterEpochAlignedBuckets(t *testing.T) {
	// Windows are anchored to the epoch, not to the first request, so a
	// request just before a boundary and one just after land in different
	// buckets even two seconds apart. This matches the Redis counter.
	now := time.Date(2026, 3, 1, 12, 59, 59, 0, time.UTC)
	c := NewLocalCounterAt(func() time.Time { return now })
	ctx := context.Background()

	count, reset, _ := c.IncrementAndCount(ctx, "k", time.Hour)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if reset != time.Second {
		t.Errorf("reset at bucket edge = %v, want 1s", reset)
	}

	now = now.Add(2 * time.Second)
	count, _, _ = c.IncrementAndCount(ctx, "k", time.Hour)
	if count != 1 {
		t.Errorf("count across bucket boundary = %d, want 1", count)
	}
}

func TestLocalCounterResetShrinks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLocalCounterAt(func() time.Time { return now })
	ctx := context.Background()

	c.IncrementAndCount(ctx, "k", time.Hour)
	now = now.Add(20 * time.Minute)
	_, reset, _ := c.IncrementAndCount(ctx, "k", time.Hour)
	if reset != 40*time.Minute {
		t.Errorf("reset = %v, want 40m", reset)
	}
}

func TestLocalCounterIndependentKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLocalCounterAt(func() time.Time { return now })
	ctx := context.Background()

	c.IncrementAndCount(ctx, "a", time.Hour)
	c.IncrementAndCount(ctx, "a", time.Hour)
	count, _, _ := c.IncrementAndCount(ctx, "b", time.Hour)
	if count != 1 {
		t.Errorf("count for fresh key = %d, want 1", count)
	}
}

func TestLocalCounterConcurrent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLocalCounterAt(func() time.Time { return now })
	ctx := context.Background()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.IncrementAndCount(ctx, "shared", time.Hour)
			}
		}()
	}
	wg.Wait()

	count, _, _ := c.IncrementAndCount(ctx, "shared", time.Hour)
	if count != goroutines*perGoroutine+1 {
		t.Errorf("count = %d, want %d", count, goroutines*perGoroutine+1)
	}
}
