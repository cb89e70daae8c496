package modem

import (
	"fmt"

	"i4.energy/across/meterbridge/meter"
)

// MaxURLLen bounds the formatted request target. Worst-case field widths
// fit comfortably; anything longer (an oversized base URL) is truncated
// rather than allowed to grow without bound.
const MaxURLLen = 256

// DeviceClass is the fixed device-class literal appended to every
// request, matching what the receiving endpoint expects.
const DeviceClass = "atmega328pb"

// BuildRequestURL formats the HTTP GET target for one reading: the base
// path followed by one short query parameter per quantity and the meter
// date-time with a URL-encoded space separator.
func BuildRequestURL(base string, r meter.Reading) string {
	buf := make([]byte, 0, MaxURLLen)
	buf = fmt.Appendf(buf,
		"%s?v=%.2f&c=%.3f&pf=%.2f&l=%.5f&k=%.2f&f=%.1f&d=%02d-%02d-%02d%%20%02d:%02d:%02d&s=%s",
		base,
		r.Voltage, r.Current, r.PowerFactor, r.Load, r.Energy, r.Frequency,
		r.Day, r.Month, r.Year, r.Hour, r.Minute, r.Second,
		DeviceClass)
	if len(buf) > MaxURLLen {
		buf = buf[:MaxURLLen]
	}
	return string(buf)
}
