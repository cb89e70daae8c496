// Package meter implements capture and decoding of the fixed-layout
// binary frames emitted by the attached digital energy meter.
//
// The meter answers each poll command with exactly one 44-byte frame.
// All multi-byte fields are big-endian, scaled by a per-field power of
// ten. The final byte of a well-formed frame is always 0xDD; a frame
// with any other terminator is discarded without further inspection.
package meter

// Frame geometry.
const (
	FrameLen  = 44
	EndOffset = 43
	Sentinel  = 0xDD
)

// Field byte offsets within a frame.
const (
	idxVoltage     = 0  // 2 bytes, /100
	idxCurrent     = 2  // 2 bytes, /1000
	idxPowerFactor = 4  // 1 byte, /100
	idxLoadKW      = 5  // 3 bytes, /100000
	idxKWHTotal    = 11 // 3 bytes, /100
	idxDate        = 29
	idxMonth       = 30
	idxYear        = 31
	idxHour        = 32
	idxMinute      = 33
	idxSecond      = 34
	idxFrequency   = 35 // 2 bytes, /10
)

// PollCommand is the exact byte sequence that makes the meter emit one
// frame.
var PollCommand = []byte{0xCC, 0x91, 0xDD}

// Frame is one raw 44-byte record as received from the meter.
type Frame [FrameLen]byte

// Valid reports whether the frame carries the expected terminator byte.
func (f *Frame) Valid() bool {
	return f[EndOffset] == Sentinel
}

// Reading holds the physical quantities decoded from one frame. A
// Reading is immutable once produced and lives for exactly one upload
// cycle.
type Reading struct {
	Voltage     float64 `json:"voltage_v"`
	Current     float64 `json:"current_a"`
	PowerFactor float64 `json:"power_factor"`
	Load        float64 `json:"load_kw"`
	Energy      float64 `json:"energy_kwh"`
	Frequency   float64 `json:"frequency_hz"`

	// Meter clock, taken verbatim from the frame. Year is an offset
	// from 2000.
	Day    uint8 `json:"day"`
	Month  uint8 `json:"month"`
	Year   uint8 `json:"year"`
	Hour   uint8 `json:"hour"`
	Minute uint8 `json:"minute"`
	Second uint8 `json:"second"`
}

func u16(f *Frame, idx int) uint16 {
	return uint16(f[idx])<<8 | uint16(f[idx+1])
}

func u24(f *Frame, idx int) uint32 {
	return uint32(f[idx])<<16 | uint32(f[idx+1])<<8 | uint32(f[idx+2])
}

// Decode extracts a Reading from a frame snapshot. It is pure and has
// no error path: any 44-byte buffer decodes into numbers, validity is
// enforced upstream by the sentinel check.
func Decode(f *Frame) Reading {
	return Reading{
		Voltage:     float64(u16(f, idxVoltage)) / 100,
		Current:     float64(u16(f, idxCurrent)) / 1000,
		PowerFactor: float64(f[idxPowerFactor]) / 100,
		Load:        float64(u24(f, idxLoadKW)) / 100000,
		Energy:      float64(u24(f, idxKWHTotal)) / 100,
		Frequency:   float64(u16(f, idxFrequency)) / 10,
		Day:         f[idxDate],
		Month:       f[idxMonth],
		Year:        f[idxYear],
		Hour:        f[idxHour],
		Minute:      f[idxMinute],
		Second:      f[idxSecond],
	}
}
