package bridge

import (
	"sync/atomic"
	"time"
)

// TickInterval is the period of the service loop's tick source.
const TickInterval = 10 * time.Millisecond

// Clock is the bridge's sole source of monotonic time: a free-running
// tick counter advanced once per service-loop tick, with a derived
// millisecond counter for delay arithmetic. The counters are uint32 and
// will eventually roll over; all comparisons against them must use
// wraparound-safe subtraction (now-start >= threshold), which stays
// correct across the boundary.
//
// Only the service loop advances the clock; any goroutine may read it.
type Clock struct {
	interval uint32 // milliseconds per tick
	ticks    atomic.Uint32
	millis   atomic.Uint32
}

func NewClock(interval time.Duration) *Clock {
	return &Clock{interval: uint32(interval.Milliseconds())}
}

// Advance records one elapsed tick.
func (c *Clock) Advance() {
	c.ticks.Add(1)
	c.millis.Add(c.interval)
}

// Ticks returns the number of ticks since start.
func (c *Clock) Ticks() uint32 {
	return c.ticks.Load()
}

// Millis returns elapsed milliseconds since start, at tick resolution.
func (c *Clock) Millis() uint32 {
	return c.millis.Load()
}
