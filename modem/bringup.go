package modem

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"i4.energy/across/meterbridge/at"
)

// BringupState enumerates the stages of the one-time modem bring-up
// sequence. Transitions are strictly forward; Ready is sticky for the
// process lifetime.
type BringupState int

const (
	BringupIdle BringupState = iota
	BringupEchoTest
	BringupEchoOff
	BringupSimCheck
	BringupRegistrationCheck
	BringupSignalCheck
	BringupAPNSet
	BringupAttach
	BringupNetworkOpen
	BringupReady
)

var bringupStateNames = map[BringupState]string{
	BringupIdle:              "idle",
	BringupEchoTest:          "echo-test",
	BringupEchoOff:           "echo-off",
	BringupSimCheck:          "sim-check",
	BringupRegistrationCheck: "registration-check",
	BringupSignalCheck:       "signal-check",
	BringupAPNSet:            "apn-set",
	BringupAttach:            "attach",
	BringupNetworkOpen:       "network-open",
	BringupReady:             "ready",
}

func (s BringupState) String() string {
	if name, ok := bringupStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BringupState(%d)", int(s))
}

// bringupStep couples the command emitted on leaving a state with the
// state entered afterwards.
type bringupStep struct {
	command string // empty means no emission
	next    BringupState
}

// Bringup sequences the modem through network attachment, one command
// per fixed delay, without inspecting responses. It must be serviced
// from a single goroutine; State and Ready may be read from any.
type Bringup struct {
	sender    Sender
	steps     [BringupReady + 1]bringupStep
	delay     uint32 // milliseconds between commands
	state     atomic.Int32
	enteredAt uint32
	log       *slog.Logger
}

// NewBringup builds the sequencer for the given access point name.
func NewBringup(sender Sender, apn string, delay time.Duration, log *slog.Logger) *Bringup {
	b := &Bringup{
		sender: sender,
		delay:  uint32(delay.Milliseconds()),
		log:    log,
	}
	b.steps = [BringupReady + 1]bringupStep{
		BringupIdle:              {at.CmdAT, BringupEchoTest},
		BringupEchoTest:          {at.CmdEchoOff, BringupEchoOff},
		BringupEchoOff:           {at.CmdSimStatus, BringupSimCheck},
		BringupSimCheck:          {at.CmdRegistration, BringupRegistrationCheck},
		BringupRegistrationCheck: {at.CmdSignal, BringupSignalCheck},
		BringupSignalCheck:       {fmt.Sprintf(at.FmtSetAPN, apn), BringupAPNSet},
		BringupAPNSet:            {at.CmdAttach, BringupAttach},
		BringupAttach:            {at.CmdNetOpen, BringupNetworkOpen},
		BringupNetworkOpen:       {"", BringupReady},
	}
	return b
}

// State returns the current bring-up stage.
func (b *Bringup) State() BringupState {
	return BringupState(b.state.Load())
}

// Ready reports whether the bring-up sequence has completed.
func (b *Bringup) Ready() bool {
	return b.State() == BringupReady
}

// Service advances the machine by at most one step and returns
// immediately. The first command fires on the first call; every later
// transition waits until the fixed delay has elapsed in the current
// state. The uint32 subtraction keeps the comparison correct across
// counter rollover.
func (b *Bringup) Service(now uint32) {
	state := b.State()
	if state == BringupReady {
		return
	}
	if state != BringupIdle && now-b.enteredAt < b.delay {
		return
	}

	step := b.steps[state]
	if step.command != "" {
		b.sender.Send(step.command)
	}
	b.state.Store(int32(step.next))
	b.enteredAt = now

	if step.next == BringupReady {
		b.log.Info("modem bring-up complete")
	}
}
