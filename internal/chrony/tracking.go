// Package chrony adapts chronyd's tracking data into the
// (bound_nsec, status) pair the runner needs, and offers best-effort
// recovery commands (reset/burst sources) used after a disruption.
package chrony

import (
	"math"
	"time"

	"github.com/aws/clock-bound/internal/clockbound"
)

// Tracking mirrors the fields of chrony's tracking report this system
// consumes. RefID identifies chrony's currently selected reference source,
// used to gate the PHC error-bound term.
type Tracking struct {
	RefID               uint32
	RefTime             time.Time
	LeapStatus          int
	RootDelaySec        float64
	RootDispersionSec   float64
	CurrentCorrectionSec float64
	LastUpdateInterval  time.Duration
}

// ExtractErrorBoundNsec computes the chrony-derived half-width of the error
// interval, per SPEC_FULL.md §4.6.
func (t Tracking) ExtractErrorBoundNsec() int64 {
	correction := t.CurrentCorrectionSec
	if correction < 0 {
		correction = -correction
	}
	seconds := t.RootDelaySec/2 + t.RootDispersionSec + correction
	return int64(math.Ceil(seconds * 1e9))
}

// ChronyClockStatus derives the chrony-reported status from LeapStatus,
// downgrading a stale Synchronized report to FreeRunning once chrony has
// gone too long without updating its tracking register.
func (t Tracking) ChronyClockStatus(now time.Time) clockbound.ChronyClockStatus {
	var status clockbound.ChronyClockStatus
	switch {
	case t.LeapStatus >= 0 && t.LeapStatus <= 2:
		status = clockbound.ChronySynchronized
	case t.LeapStatus == 3:
		status = clockbound.ChronyFreeRunning
	default:
		status = clockbound.ChronyUnknown
	}

	if status != clockbound.ChronySynchronized {
		return status
	}

	emptyRegisterTimeout := 8 * t.LastUpdateInterval
	if now.Sub(t.RefTime) > emptyRegisterTimeout {
		return clockbound.ChronyFreeRunning
	}
	return status
}
