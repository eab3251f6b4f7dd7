package encoding

import (
	"strings"
	"time"
)

// VMS timestamps are 64-bit counts of 100-nanosecond ticks since the
// Smithsonian base date, 1858-11-17 00:00:00 UTC.
const (
	// Tick count of the POSIX epoch, 1970-01-01 00:00:00 UTC.
	vmsUnixEpochTicks = 35067168003000000
	ticksPerSecond    = 10_000_000
	nanosPerTick      = 100
)

// UnmarshalVMSTime converts a VMS quadword timestamp to a time.Time in UTC.
// A zero quadword means "no time recorded" and yields the zero time.
func UnmarshalVMSTime(ticks uint64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	unixTicks := int64(ticks) - vmsUnixEpochTicks
	sec := unixTicks / ticksPerSecond
	frac := unixTicks % ticksPerSecond
	if frac < 0 {
		sec--
		frac += ticksPerSecond
	}
	return time.Unix(sec, frac*nanosPerTick).UTC()
}

// MarshalVMSTime converts a time.Time to a VMS quadword timestamp. The zero
// time marshals to a zero quadword.
func MarshalVMSTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	ticks := t.Unix()*ticksPerSecond + int64(t.Nanosecond())/nanosPerTick
	return uint64(ticks + vmsUnixEpochTicks)
}

// TrimPadded decodes a space/NUL padded ASCII text field such as the home
// block volume and owner names.
func TrimPadded(b []byte) string {
	return strings.Trim(string(b), " \x00")
}

// FileName normalizes the two identification-area name fields into the form
// used for path resolution: the 20-byte name and 66-byte extension are
// concatenated, trimmed, the ";version" suffix is dropped, and a trailing
// "." (empty file type) is removed.
func FileName(name, ext []byte) string {
	s := TrimPadded(append(append([]byte{}, name...), ext...))
	if i := strings.LastIndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}

// RecordName normalizes a directory record name, which is stored without a
// version but may carry an empty file type as a trailing ".".
func RecordName(b []byte) string {
	return strings.TrimSuffix(string(b), ".")
}
