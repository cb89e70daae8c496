package meter

import "sync/atomic"

// Capture accumulates bytes arriving from the meter link into a frame
// buffer and publishes complete, sentinel-valid frames for the consumer
// side of the bridge.
//
// Exactly one goroutine (the meter-port reader) may call Feed; exactly
// one goroutine (the service loop) may call Clear and RequestReset. The
// filling buffer and cursor are owned by the producer alone; a reset
// from the consumer side is a request that Feed applies before the next
// byte lands. A completed frame crosses the goroutine boundary as an
// immutable snapshot behind an atomic pointer, with an atomic flag
// signalling availability. There is no backpressure: if the consumer
// has not cleared the flag before the next frame completes, the
// published frame is replaced (last-writer-wins).
type Capture struct {
	buf Frame
	idx int

	resetReq atomic.Bool
	latest   atomic.Pointer[Frame]
	ready    atomic.Bool
}

// NewCapture returns a Capture with an empty buffer.
func NewCapture() *Capture {
	return &Capture{}
}

// Feed consumes one byte from the meter link. It reports true when this
// byte completed a sentinel-valid frame; the cursor resets regardless of
// validity, ready to capture the next frame. Feed is O(1) and never
// blocks.
func (c *Capture) Feed(b byte) bool {
	if c.resetReq.CompareAndSwap(true, false) {
		c.idx = 0
	}

	c.buf[c.idx] = b
	c.idx++

	if c.idx < FrameLen {
		return false
	}
	c.idx = 0

	if !c.buf.Valid() {
		return false
	}
	snap := c.buf
	c.latest.Store(&snap)
	c.ready.Store(true)
	return true
}

// RequestReset discards any partially captured frame. Called by the
// poll driver at the start of each poll period so the response to the
// new poll always lands at offset zero. The cursor stays owned by the
// feeding goroutine: the reset takes effect on the next Feed call,
// before that byte is stored.
func (c *Capture) RequestReset() {
	c.resetReq.Store(true)
}

// Ready reports whether a complete frame is available for consumption.
func (c *Capture) Ready() bool {
	return c.ready.Load()
}

// Snapshot returns the most recently published frame. Only meaningful
// once Ready has been observed true; before the first frame it returns
// a zero frame.
func (c *Capture) Snapshot() Frame {
	if f := c.latest.Load(); f != nil {
		return *f
	}
	return Frame{}
}

// Clear marks the published frame as consumed.
func (c *Capture) Clear() {
	c.ready.Store(false)
}
