//go:generate go tool mockgen -source=link.go -destination=mock_link.go -package=link

package link

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to an
// attached device.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to exchange bytes with
// the device. Typical implementations include serial ports, TCP
// connections to emulators, or in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to an attached device.
//
// Dialer abstracts how the connection is created (for example, via a
// serial port, TCP-based emulator, or test double) and is intended to be
// used during construction only. Once a Transport is obtained, the Dialer
// is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It returns an error
	// if the transport cannot be established.
	Dial() (Transport, error)
}

// SerialDialer opens a device over a serial port using go.bug.st/serial.
// Both attached links of the bridge use the same frame format: 8 data
// bits, no parity, one stop bit.
type SerialDialer struct {
	PortName string
	BaudRate int
}

func (d SerialDialer) Dial() (Transport, error) {
	mode := &serial.Mode{
		BaudRate: d.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	return port, nil
}
