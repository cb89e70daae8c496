// Package modem drives a cellular modem through its AT command surface.
//
// The bridge treats the modem link as write-only: commands are paced by
// fixed delays instead of response inspection, and whatever the modem
// says back is drained and discarded elsewhere. A command that was not
// actually accepted still advances the sequencers; that fire-and-forget
// policy is deliberate.
package modem

import (
	"log/slog"

	"i4.energy/across/meterbridge/at"
	"i4.energy/across/meterbridge/link"
)

// Sender emits one AT command to the modem. Implementations must not
// block beyond the underlying write.
type Sender interface {
	Send(cmd string)
}

// Commander writes AT commands to the modem transport, terminated by
// CRLF. Write failures are logged and otherwise ignored.
type Commander struct {
	transport link.Transport
	log       *slog.Logger
}

func NewCommander(transport link.Transport, log *slog.Logger) *Commander {
	return &Commander{transport: transport, log: log}
}

func (c *Commander) Send(cmd string) {
	c.log.Debug("sending command", "command", cmd)
	if _, err := c.transport.Write([]byte(cmd + at.CRLF)); err != nil {
		c.log.Warn("modem write failed", "command", cmd, "error", err)
	}
}
