// Package bridge wires the meter link, the capture pipeline, and the
// two modem sequencers into one cooperative service loop.
//
// The loop never blocks: every iteration advances the clock, re-issues
// the meter poll when its period has elapsed, and gives each sequencer
// exactly one service call. Byte reception from both links happens on
// dedicated reader goroutines; the only state they share with the loop
// is atomic.
package bridge

import (
	"bufio"
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"i4.energy/across/meterbridge/at"
	"i4.energy/across/meterbridge/link"
	"i4.energy/across/meterbridge/meter"
	"i4.energy/across/meterbridge/modem"
)

// Options carries the tunables of the bridge. Zero values fall back to
// the deployment defaults.
type Options struct {
	// APN is the access point name for the packet network.
	APN string
	// BaseURL is the collector endpoint the readings are uploaded to.
	BaseURL string
	// CommandDelay is the pause between bring-up AT commands.
	CommandDelay time.Duration
	// HTTPDelay is the pause between HTTP session steps.
	HTTPDelay time.Duration
	// PollInterval is the meter polling period.
	PollInterval time.Duration

	// Heartbeat, if set, is invoked once per poll period, typically to
	// drive a liveness indicator.
	Heartbeat func()
	// OnReading, if set, is invoked for every decoded frame, from the
	// meter reader goroutine. It must not block.
	OnReading func(meter.Reading)
}

func (o *Options) setDefaults() {
	if o.CommandDelay == 0 {
		o.CommandDelay = 2 * time.Second
	}
	if o.HTTPDelay == 0 {
		o.HTTPDelay = 1500 * time.Millisecond
	}
	if o.PollInterval == 0 {
		o.PollInterval = time.Second
	}
}

// Status is a point-in-time snapshot of the bridge for the observation
// surfaces.
type Status struct {
	BringupState     string `json:"bringup_state"`
	UplinkState      string `json:"uplink_state"`
	Ticks            uint32 `json:"ticks"`
	UptimeMillis     uint32 `json:"uptime_ms"`
	FramesSeen       uint32 `json:"frames_seen"`
	UploadsCompleted uint32 `json:"uploads_completed"`
}

// Bridge owns the capture pipeline and both sequencers and drives them
// from a single service loop.
type Bridge struct {
	meterLink link.Transport
	modemLink link.Transport

	capture *meter.Capture
	bringup *modem.Bringup
	uplink  *modem.Uplink
	clock   *Clock

	pollMs   uint32
	lastPoll uint32

	heartbeat func()
	onReading func(meter.Reading)

	framesSeen atomic.Uint32
	latest     atomic.Pointer[meter.Reading]

	log *slog.Logger
}

// New assembles a bridge over the two transports.
func New(meterLink, modemLink link.Transport, opts Options, logger *slog.Logger) *Bridge {
	opts.setDefaults()

	capture := meter.NewCapture()
	commander := modem.NewCommander(modemLink, logger.With("component", "modem"))
	bringup := modem.NewBringup(commander, opts.APN, opts.CommandDelay, logger.With("component", "bringup"))
	uplink := modem.NewUplink(commander, capture, bringup, opts.BaseURL, opts.HTTPDelay, logger.With("component", "uplink"))

	return &Bridge{
		meterLink: meterLink,
		modemLink: modemLink,
		capture:   capture,
		bringup:   bringup,
		uplink:    uplink,
		clock:     NewClock(TickInterval),
		pollMs:    uint32(opts.PollInterval.Milliseconds()),
		heartbeat: opts.Heartbeat,
		onReading: opts.OnReading,
		log:       logger,
	}
}

// Run starts the reader goroutines and the service loop, and blocks
// until the context is cancelled. Closing the transports unblocks the
// readers.
func (b *Bridge) Run(ctx context.Context) error {
	go b.readMeter(ctx)
	go b.drainModem(ctx)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.clock.Advance()
			b.service(b.clock.Millis())
		}
	}
}

// service runs one loop iteration: poll the meter when the period has
// elapsed, then give each sequencer one non-blocking service call.
func (b *Bridge) service(now uint32) {
	if now-b.lastPoll >= b.pollMs {
		b.lastPoll = now
		if b.heartbeat != nil {
			b.heartbeat()
		}
		b.capture.RequestReset()
		if _, err := b.meterLink.Write(meter.PollCommand); err != nil {
			b.log.Warn("meter poll write failed", "error", err)
		}
	}

	b.bringup.Service(now)
	b.uplink.Service(now)
}

// readMeter feeds the capture pipeline one byte at a time and publishes
// each decoded reading. Runs until the transport fails or is closed.
func (b *Bridge) readMeter(ctx context.Context) {
	buf := make([]byte, 64)
	for {
		n, err := b.meterLink.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				b.log.Error("meter read failed", "error", err)
			}
			return
		}
		for _, by := range buf[:n] {
			if !b.capture.Feed(by) {
				continue
			}
			frame := b.capture.Snapshot()
			reading := meter.Decode(&frame)
			b.framesSeen.Add(1)
			b.latest.Store(&reading)
			if b.onReading != nil {
				b.onReading(reading)
			}
		}
	}
}

// drainModem consumes and discards whatever the modem sends back, so
// the link never backs up. Tokens are surfaced at debug level only; the
// sequencers never see them.
func (b *Bridge) drainModem(ctx context.Context) {
	scanner := bufio.NewScanner(b.modemLink)
	scanner.Split(at.Splitter)

	for scanner.Scan() {
		token := scanner.Text()
		if token == "" {
			continue
		}
		switch at.Classify(token) {
		case at.TypeURC:
			b.log.Info("modem notification", "token", token)
		default:
			b.log.Debug("modem output discarded", "token", token)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		b.log.Warn("modem read failed", "error", err)
	}
}

// LatestReading returns the most recently decoded reading, or nil if no
// frame has been captured yet.
func (b *Bridge) LatestReading() *meter.Reading {
	return b.latest.Load()
}

// Status snapshots the bridge state for the HTTP surface.
func (b *Bridge) Status() Status {
	return Status{
		BringupState:     b.bringup.State().String(),
		UplinkState:      b.uplink.State().String(),
		Ticks:            b.clock.Ticks(),
		UptimeMillis:     b.clock.Millis(),
		FramesSeen:       b.framesSeen.Load(),
		UploadsCompleted: b.uplink.Completed(),
	}
}
