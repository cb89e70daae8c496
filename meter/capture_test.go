package meter_test

import (
	"testing"

	"i4.energy/across/meterbridge/meter"
)

func feedFrame(c *meter.Capture, f meter.Frame) int {
	completions := 0
	for _, b := range f {
		if c.Feed(b) {
			completions++
		}
	}
	return completions
}

func TestCaptureValidFrame(t *testing.T) {
	c := meter.NewCapture()
	f := sampleFrame(t)

	if got := feedFrame(c, f); got != 1 {
		t.Fatalf("expected exactly one completion per valid frame, got %d", got)
	}
	if !c.Ready() {
		t.Fatal("frame should be ready after sentinel-valid frame")
	}
	if snap := c.Snapshot(); snap != f {
		t.Error("snapshot does not match fed frame")
	}

	c.Clear()
	if c.Ready() {
		t.Error("frame should not be ready after Clear")
	}
}

func TestCaptureInvalidSentinel(t *testing.T) {
	c := meter.NewCapture()
	f := sampleFrame(t)
	f[meter.EndOffset] = 0x00

	if got := feedFrame(c, f); got != 0 {
		t.Fatalf("invalid frame should never complete, got %d completions", got)
	}
	if c.Ready() {
		t.Error("frame-ready must stay false for an invalid terminator")
	}

	// Capture restarts cleanly: the next valid frame publishes.
	if got := feedFrame(c, sampleFrame(t)); got != 1 {
		t.Fatalf("expected one completion after restart, got %d", got)
	}
	if !c.Ready() {
		t.Error("frame should be ready after subsequent valid frame")
	}
}

func TestCaptureLastWriterWins(t *testing.T) {
	c := meter.NewCapture()

	first := sampleFrame(t)
	feedFrame(c, first)

	second := sampleFrame(t)
	second[0], second[1] = 0x09, 0x14
	feedFrame(c, second)

	if snap := c.Snapshot(); snap != second {
		t.Error("unconsumed frame should be silently overwritten by the next one")
	}
}

func TestCaptureResetDiscardsPartial(t *testing.T) {
	c := meter.NewCapture()
	f := sampleFrame(t)

	// Half a frame, then a poll-period reset.
	for _, b := range f[:20] {
		c.Feed(b)
	}
	c.RequestReset()

	if got := feedFrame(c, f); got != 1 {
		t.Fatalf("expected one completion after reset, got %d", got)
	}
	if snap := c.Snapshot(); snap != f {
		t.Error("frame captured after reset should match the fed bytes")
	}
}
