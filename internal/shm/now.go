package shm

import (
	"time"

	"github.com/aws/clock-bound/internal/clockbound"
)

// RestartGracePeriod is the window after as_of during which a published
// status is still trusted even without a fresh upstream sample.
const RestartGracePeriod = 5 * time.Second

// CausalitySlack is the tolerance for a monotonic sample observed slightly
// before as_of, absorbing coarse-clock resolution anomalies.
const CausalitySlack = time.Microsecond

// maxDriftCeiling is the invariant bound from §3.1: drift must be expressed
// in parts-per-billion and therefore strictly less than one second per
// second.
const maxDriftCeiling = 1_000_000_000

// Now computes the (earliest, latest, status) interval for snapshot s at
// the given realtime/monotonic sample pair, per SPEC_FULL.md §4.3.
func Now(s ClockErrorBound, real, mono clockbound.TimeSpec) (earliest, latest clockbound.TimeSpec, status clockbound.ClockStatus, err error) {
	if s.MaxDriftPPB >= maxDriftCeiling {
		return clockbound.TimeSpec{}, clockbound.TimeSpec{}, 0, &clockbound.Error{
			Kind: clockbound.SegmentMalformed, Origin: "now", Detail: "max_drift_ppb >= 1e9",
		}
	}

	status = s.ClockStatus
	switch {
	case status == clockbound.StatusUnknown:
		// stays Unknown
	case mono.Before(s.AsOf.Add(RestartGracePeriod)):
		// within grace period, keep as published
	case mono.Before(s.VoidAfter):
		status = clockbound.StatusFreeRunning
	default:
		status = clockbound.StatusUnknown
	}

	var d time.Duration
	if mono.Before(s.AsOf) {
		slack := s.AsOf.Sub(mono)
		if slack > CausalitySlack {
			return clockbound.TimeSpec{}, clockbound.TimeSpec{}, 0, &clockbound.Error{
				Kind: clockbound.CausalityBreach, Origin: "now", Detail: "monotonic sample older than as_of",
			}
		}
		d = 0
	} else {
		d = mono.Sub(s.AsOf)
	}

	boundNsec := s.BoundNsec
	if boundNsec < 0 {
		boundNsec = 0
	}
	driftNsec := int64(d.Seconds() * float64(s.MaxDriftPPB))
	b := time.Duration(boundNsec + driftNsec)

	return real.Add(-b), real.Add(b), status, nil
}
