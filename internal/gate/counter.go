package gate

import (
	"context"
	"sync"
	"time"
)

// WindowCounter counts admitted+attempted actions inside fixed windows
// aligned to the Unix epoch, so every instance agrees on bucket boundaries.
// Implementations must increment atomically; read-then-write at the caller
// loses updates under contention. The returned reset duration is how long
// until the key's window rolls over, used for retry-after hints.
type WindowCounter interface {
	IncrementAndCount(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)
}

// entry tracks the count and window end for a single key.
type entry struct {
	count     int64
	windowEnd time.Time
}

// LocalCounter is the in-memory WindowCounter for single-instance
// deployments, and the fallback store for degraded admissions when the
// distributed counter is unreachable.
type LocalCounter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewLocalCounter() *LocalCounter {
	c := &LocalCounter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	// Background cleanup every 5 minutes
	go c.cleanup()
	return c
}

// NewLocalCounterAt builds a counter with an injectable clock for tests.
// No cleanup goroutine is started.
func NewLocalCounterAt(now func() time.Time) *LocalCounter {
	return &LocalCounter{
		entries: make(map[string]*entry),
		now:     now,
	}
}

// IncrementAndCount never fails; the error return satisfies WindowCounter.
func (c *LocalCounter) IncrementAndCount(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	windowSecs := int64(window / time.Second)
	if windowSecs <= 0 {
		windowSecs = 1
	}
	// Same bucketing as the Redis counter: epoch-aligned windows.
	windowEnd := time.Unix((now.Unix()/windowSecs+1)*windowSecs, 0)

	e, exists := c.entries[key]
	if !exists || !e.windowEnd.Equal(windowEnd) {
		e = &entry{count: 1, windowEnd: windowEnd}
		c.entries[key] = e
	} else {
		e.count++
	}
	return e.count, e.windowEnd.Sub(now), nil
}

func (c *LocalCounter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		c.mu.Lock()
		now := c.now()
		for key, e := range c.entries {
			if now.After(e.windowEnd) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
