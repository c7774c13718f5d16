package clockbound

import (
	"time"

	"golang.org/x/sys/unix"
)

// TimeSpec is a (seconds, nanoseconds) pair, used for both monotonic and
// realtime samples so the arithmetic in §4.3 of the design never has to
// round-trip through time.Time's wall/monotonic split.
type TimeSpec struct {
	Sec  int64
	Nsec int64
}

// Add returns t shifted by d.
func (t TimeSpec) Add(d time.Duration) TimeSpec {
	total := t.Sec*1e9 + t.Nsec + int64(d)
	return TimeSpec{Sec: total / 1e9, Nsec: total % 1e9}
}

// Sub returns t-u as a time.Duration.
func (t TimeSpec) Sub(u TimeSpec) time.Duration {
	return time.Duration((t.Sec-u.Sec)*1e9 + (t.Nsec - u.Nsec))
}

// Before reports whether t is strictly earlier than u.
func (t TimeSpec) Before(u TimeSpec) bool {
	if t.Sec != u.Sec {
		return t.Sec < u.Sec
	}
	return t.Nsec < u.Nsec
}

// ToTime converts a realtime TimeSpec to time.Time.
func (t TimeSpec) ToTime() time.Time {
	return time.Unix(t.Sec, t.Nsec)
}

// ReadRealtime samples CLOCK_REALTIME.
func ReadRealtime() (TimeSpec, error) {
	return readClock(unix.CLOCK_REALTIME)
}

// ReadMonotonic samples CLOCK_MONOTONIC.
func ReadMonotonic() (TimeSpec, error) {
	return readClock(unix.CLOCK_MONOTONIC)
}

func readClock(id int32) (TimeSpec, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(id, &ts); err != nil {
		return TimeSpec{}, &Error{Kind: Syscall, Origin: "clock_gettime", Err: err}
	}
	return TimeSpec{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}, nil
}
