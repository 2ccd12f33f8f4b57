// internal/sched/clock.go

package sched

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock supplies monotonic time in microseconds since an arbitrary epoch.
type Clock interface {
	Now() uint64
}

// Sleeper yields to the host for roughly d.
// It returns ctx.Err() if the context ends first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock reads the process monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock whose epoch is the moment of the call.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns microseconds elapsed since the clock was created.
func (c *SystemClock) Now() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

// Sleep blocks on a timer.
func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VirtualClock is a manually driven clock. Sleeping advances it instantly.
type VirtualClock struct {
	now atomic.Uint64
}

// NewVirtualClock creates a clock that starts at start.
func NewVirtualClock(start uint64) *VirtualClock {
	c := &VirtualClock{}
	c.now.Store(start)
	return c
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() uint64 { return c.now.Load() }

// Set jumps to t. Moving backwards is ignored.
func (c *VirtualClock) Set(t uint64) {
	for {
		cur := c.now.Load()
		if t <= cur || c.now.CompareAndSwap(cur, t) {
			return
		}
	}
}

// Advance moves the clock forward by d and returns the new time.
func (c *VirtualClock) Advance(d time.Duration) uint64 {
	if d <= 0 {
		return c.now.Load()
	}
	return c.now.Add(uint64(d.Microseconds()))
}

// Sleep advances the clock by d without blocking.
func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

// Micros converts a duration to clock units.
func Micros(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Microseconds())
}

// Duration converts clock units to a duration.
func Duration(us uint64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
