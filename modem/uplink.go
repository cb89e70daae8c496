package modem

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"i4.energy/across/meterbridge/at"
	"i4.energy/across/meterbridge/meter"
)

// UplinkState enumerates the stages of one per-frame upload cycle.
type UplinkState int

const (
	UplinkIdle UplinkState = iota
	UplinkTerminateSession
	UplinkInit
	UplinkSetConnectionID
	UplinkSetURL
	UplinkExecute
	UplinkComplete
)

var uplinkStateNames = map[UplinkState]string{
	UplinkIdle:             "idle",
	UplinkTerminateSession: "terminate-session",
	UplinkInit:             "init",
	UplinkSetConnectionID:  "set-connection-id",
	UplinkSetURL:           "set-url",
	UplinkExecute:          "execute",
	UplinkComplete:         "complete",
}

func (s UplinkState) String() string {
	if name, ok := uplinkStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UplinkState(%d)", int(s))
}

// FrameSource hands completed meter frames to the uplink. Ready and
// Snapshot are safe to call from the servicing goroutine at any time;
// Clear marks the current frame as consumed.
type FrameSource interface {
	Ready() bool
	Snapshot() meter.Frame
	Clear()
}

// ModemGate reports whether the modem bring-up sequence has completed.
type ModemGate interface {
	Ready() bool
}

// Uplink drives the modem through one HTTP upload per captured frame:
// session reset, init, parameter set, and execute, each step gated by a
// fixed delay. No responses are inspected; the cycle always completes
// and returns to idle, dropping the frame whether or not the remote
// endpoint actually received it.
//
// A cycle begins only when the modem is ready and a frame is available.
// The request target is formatted once, at cycle start, from a snapshot
// of the frame; later overwrites of the capture buffer cannot tear it.
type Uplink struct {
	sender  Sender
	frames  FrameSource
	modem   ModemGate
	baseURL string
	delay   uint32 // milliseconds between HTTP steps

	state     atomic.Int32
	enteredAt uint32
	url       string

	completed atomic.Uint32
	log       *slog.Logger
}

func NewUplink(sender Sender, frames FrameSource, modem ModemGate, baseURL string, delay time.Duration, log *slog.Logger) *Uplink {
	return &Uplink{
		sender:  sender,
		frames:  frames,
		modem:   modem,
		baseURL: baseURL,
		delay:   uint32(delay.Milliseconds()),
		log:     log,
	}
}

// State returns the current cycle stage.
func (u *Uplink) State() UplinkState {
	return UplinkState(u.state.Load())
}

// Completed returns the number of upload cycles finished since start.
func (u *Uplink) Completed() uint32 {
	return u.completed.Load()
}

// Service advances the cycle by at most one step and returns
// immediately. The execute step waits twice the base delay so the
// request has time to run before the frame is released.
func (u *Uplink) Service(now uint32) {
	switch u.State() {
	case UplinkIdle:
		if !u.modem.Ready() || !u.frames.Ready() {
			return
		}
		frame := u.frames.Snapshot()
		u.url = BuildRequestURL(u.baseURL, meter.Decode(&frame))
		u.sender.Send(at.CmdHTTPTerm)
		u.transition(UplinkTerminateSession, now)

	case UplinkTerminateSession:
		if now-u.enteredAt < u.delay {
			return
		}
		u.sender.Send(at.CmdHTTPInit)
		u.transition(UplinkInit, now)

	case UplinkInit:
		if now-u.enteredAt < u.delay {
			return
		}
		u.sender.Send(at.CmdHTTPSetCID)
		u.transition(UplinkSetConnectionID, now)

	case UplinkSetConnectionID:
		if now-u.enteredAt < u.delay {
			return
		}
		u.sender.Send(fmt.Sprintf(at.FmtHTTPSetURL, u.url))
		u.transition(UplinkSetURL, now)

	case UplinkSetURL:
		if now-u.enteredAt < u.delay {
			return
		}
		u.sender.Send(at.CmdHTTPAction)
		u.transition(UplinkExecute, now)

	case UplinkExecute:
		if now-u.enteredAt < 2*u.delay {
			return
		}
		u.frames.Clear()
		u.completed.Add(1)
		u.log.Debug("upload cycle finished", "url", u.url)
		u.transition(UplinkComplete, now)

	case UplinkComplete:
		if now-u.enteredAt < u.delay {
			return
		}
		u.transition(UplinkIdle, now)
	}
}

func (u *Uplink) transition(next UplinkState, now uint32) {
	u.state.Store(int32(next))
	u.enteredAt = now
}
