package bridge

import (
	"testing"
	"time"
)

func TestClockAdvance(t *testing.T) {
	c := NewClock(10 * time.Millisecond)

	if c.Ticks() != 0 || c.Millis() != 0 {
		t.Fatalf("fresh clock should read zero, got ticks=%d millis=%d", c.Ticks(), c.Millis())
	}

	for i := 0; i < 100; i++ {
		c.Advance()
	}
	if got := c.Ticks(); got != 100 {
		t.Errorf("ticks = %d, want 100", got)
	}
	if got := c.Millis(); got != 1000 {
		t.Errorf("millis = %d, want 1000", got)
	}
}

func TestElapsedComparisonAcrossRollover(t *testing.T) {
	// The delay idiom used throughout the bridge: (now - start) >= d.
	start := ^uint32(0) - 499 // clock about to roll over
	now := uint32(1500)      // 2000ms later, counter has wrapped

	if elapsed := now - start; elapsed != 2000 {
		t.Errorf("elapsed across rollover = %d, want 2000", elapsed)
	}
}
