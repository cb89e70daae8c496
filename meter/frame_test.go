package meter_test

import (
	"testing"

	"i4.energy/across/meterbridge/meter"
)

// sampleFrame builds a frame carrying the given readings at the
// documented offsets, with a valid terminator.
func sampleFrame(t *testing.T) meter.Frame {
	t.Helper()
	var f meter.Frame
	f[0], f[1] = 0x59, 0xD8 // voltage 23000 -> 230.00 V
	f[2], f[3] = 0x13, 0x88 // current 5000 -> 5.000 A
	f[4] = 0x62             // power factor 98 -> 0.98
	// load 123456 -> 1.23456 kW
	f[5], f[6], f[7] = 0x01, 0xE2, 0x40
	// energy 45678 -> 456.78 kWh
	f[11], f[12], f[13] = 0x00, 0xB2, 0x6E
	f[29], f[30], f[31] = 1, 1, 24 // 01-01-24
	f[32], f[33], f[34] = 12, 0, 0 // 12:00:00
	f[35], f[36] = 0x01, 0xF4      // frequency 500 -> 50.0 Hz
	f[43] = meter.Sentinel
	return f
}

func TestDecode(t *testing.T) {
	f := sampleFrame(t)
	r := meter.Decode(&f)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"voltage", r.Voltage, 230.00},
		{"current", r.Current, 5.000},
		{"power factor", r.PowerFactor, 0.98},
		{"load", r.Load, 1.23456},
		{"energy", r.Energy, 456.78},
		{"frequency", r.Frequency, 50.0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}

	if r.Day != 1 || r.Month != 1 || r.Year != 24 {
		t.Errorf("date: got %02d-%02d-%02d, want 01-01-24", r.Day, r.Month, r.Year)
	}
	if r.Hour != 12 || r.Minute != 0 || r.Second != 0 {
		t.Errorf("time: got %02d:%02d:%02d, want 12:00:00", r.Hour, r.Minute, r.Second)
	}
}

func TestDecodeScaling(t *testing.T) {
	var f meter.Frame
	f[0], f[1] = 0x09, 0x14 // 2324 -> 23.24 V
	f[2], f[3] = 0x00, 0x64 // 100 -> 0.100 A

	r := meter.Decode(&f)
	if r.Voltage != 23.24 {
		t.Errorf("voltage: got %v, want 23.24", r.Voltage)
	}
	if r.Current != 0.100 {
		t.Errorf("current: got %v, want 0.100", r.Current)
	}
}

func TestDecodeIsPure(t *testing.T) {
	f := sampleFrame(t)
	first := meter.Decode(&f)
	second := meter.Decode(&f)
	if first != second {
		t.Errorf("decoding the same frame twice differed: %+v vs %+v", first, second)
	}
}

func TestFrameValid(t *testing.T) {
	var f meter.Frame
	if f.Valid() {
		t.Error("zero frame should not be valid")
	}
	f[meter.EndOffset] = meter.Sentinel
	if !f.Valid() {
		t.Error("frame with sentinel terminator should be valid")
	}
}
