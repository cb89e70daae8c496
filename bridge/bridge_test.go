package bridge

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"i4.energy/across/meterbridge/link"
	"i4.energy/across/meterbridge/meter"
	"i4.energy/across/meterbridge/modem"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFrame() meter.Frame {
	var f meter.Frame
	f[0], f[1] = 0x59, 0xD8 // 230.00 V
	f[2], f[3] = 0x13, 0x88 // 5.000 A
	f[4] = 0x62             // pf 0.98
	f[43] = meter.Sentinel
	return f
}

func newTestBridge(opts Options) (*Bridge, *link.TestTransport, *link.TestTransport) {
	meterLink := link.NewTestTransport()
	modemLink := link.NewTestTransport()
	if opts.APN == "" {
		opts.APN = "example.apn"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://collector.example/meter"
	}
	return New(meterLink, modemLink, opts, discardLogger()), meterLink, modemLink
}

func TestServicePollsMeterOnPeriod(t *testing.T) {
	beats := 0
	b, meterLink, _ := newTestBridge(Options{
		PollInterval: time.Second,
		Heartbeat:    func() { beats++ },
	})

	// Inside the first period nothing is polled.
	for now := uint32(10); now < 1000; now += 10 {
		b.service(now)
	}
	if got := len(meterLink.Writes()); got != 0 {
		t.Fatalf("meter polled before the period elapsed: %d writes", got)
	}

	b.service(1000)
	writes := meterLink.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], meter.PollCommand) {
		t.Fatalf("expected one poll command, got %q", writes)
	}
	if beats != 1 {
		t.Errorf("heartbeat fired %d times, want 1", beats)
	}

	// Next period.
	for now := uint32(1010); now < 2000; now += 10 {
		b.service(now)
	}
	if got := len(meterLink.Writes()); got != 1 {
		t.Fatalf("extra poll inside second period: %d writes", got)
	}
	b.service(2000)
	if got := len(meterLink.Writes()); got != 2 {
		t.Fatalf("expected second poll at 2000ms, got %d writes", got)
	}
	if beats != 2 {
		t.Errorf("heartbeat fired %d times, want 2", beats)
	}
}

func TestServiceDrivesSequencersToUpload(t *testing.T) {
	b, _, modemLink := newTestBridge(Options{
		PollInterval: time.Second,
		CommandDelay: 2 * time.Second,
		HTTPDelay:    1500 * time.Millisecond,
	})

	// First service call starts the bring-up.
	b.service(10)
	if !bytes.Contains(modemLink.Written(), []byte("AT\r\n")) {
		t.Fatal("bring-up did not start with AT")
	}

	// Run the loop until the modem is ready.
	now := uint32(10)
	for !b.bringup.Ready() && now < 60000 {
		now += 10
		b.service(now)
	}
	if !b.bringup.Ready() {
		t.Fatal("bring-up never reached ready")
	}

	// No upload without a frame.
	if b.uplink.State() != modem.UplinkIdle {
		t.Fatalf("uplink left idle without a frame: %v", b.uplink.State())
	}

	// A frame arrives; the loop must drive one full upload cycle.
	for _, by := range testFrame() {
		b.capture.Feed(by)
	}
	for b.uplink.Completed() == 0 && now < 120000 {
		now += 10
		b.service(now)
	}
	if b.uplink.Completed() != 1 {
		t.Fatal("upload cycle never completed")
	}

	written := modemLink.Written()
	for _, want := range []string{
		"AT+NETOPEN\r\n",
		"AT+HTTPTERM\r\n",
		"AT+HTTPINIT\r\n",
		`AT+HTTPPARA="URL","http://collector.example/meter?v=230.00&c=5.000&pf=0.98`,
		"AT+HTTPACTION=0\r\n",
	} {
		if !bytes.Contains(written, []byte(want)) {
			t.Errorf("modem output missing %q", want)
		}
	}
	if b.capture.Ready() {
		t.Error("frame should be consumed after the upload cycle")
	}
}

func TestRunPublishesReadings(t *testing.T) {
	b, meterLink, modemLink := newTestBridge(Options{
		PollInterval: 50 * time.Millisecond,
		CommandDelay: 20 * time.Millisecond,
		HTTPDelay:    20 * time.Millisecond,
	})

	got := make(chan meter.Reading, 1)
	b.onReading = func(r meter.Reading) {
		select {
		case got <- r:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	frame := testFrame()
	meterLink.SendData(frame[:])

	select {
	case r := <-got:
		if r.Voltage != 230.00 {
			t.Errorf("voltage = %v, want 230.00", r.Voltage)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reading published within 2s")
	}

	if b.LatestReading() == nil {
		t.Error("latest reading should be set after a frame")
	}

	// The loop must also have polled the meter by now.
	deadline := time.After(2 * time.Second)
	for len(meterLink.Writes()) == 0 {
		select {
		case <-deadline:
			t.Fatal("meter never polled")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	meterLink.Close()
	modemLink.Close()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	status := b.Status()
	if status.FramesSeen != 1 {
		t.Errorf("frames seen = %d, want 1", status.FramesSeen)
	}
	if status.Ticks == 0 {
		t.Error("clock never advanced")
	}
}
