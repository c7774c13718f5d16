// Package fsm implements the clock-status finite-state machine as a pure
// transition function rather than the type-state encoding of the system
// this was learned from: a tagged ClockStatus plus Transition/TransitionNoDisruption.
package fsm

import "github.com/aws/clock-bound/internal/clockbound"

// Transition computes the next published ClockStatus for the
// disruption-aware FSM variant, combining chrony's view of the local clock
// with the disruption-detection state. See SPEC_FULL.md §4.5.
func Transition(current clockbound.ClockStatus, chrony clockbound.ChronyClockStatus, disruption clockbound.ClockDisruptionState) clockbound.ClockStatus {
	if disruption == clockbound.DisruptionDisrupted {
		return clockbound.StatusDisrupted
	}
	if current == clockbound.StatusDisrupted {
		// Leaving Disrupted always lands on Unknown first; chrony must
		// re-report Synchronized on a later tick before we trust it again.
		return clockbound.StatusUnknown
	}
	if disruption == clockbound.DisruptionUnknown {
		return clockbound.StatusUnknown
	}
	// disruption == Reliable from here on.
	switch chrony {
	case clockbound.ChronySynchronized:
		return clockbound.StatusSynchronized
	case clockbound.ChronyFreeRunning:
		if current == clockbound.StatusUnknown {
			return clockbound.StatusUnknown
		}
		return clockbound.StatusFreeRunning
	default:
		return clockbound.StatusUnknown
	}
}

// TransitionNoDisruption computes the next ClockStatus for hosts with no
// disruption-detection source configured: the disruption input is ignored
// and chrony's status maps straight through, except that FreeRunning from
// Unknown stays Unknown (Disrupted is never reachable).
func TransitionNoDisruption(current clockbound.ClockStatus, chrony clockbound.ChronyClockStatus) clockbound.ClockStatus {
	switch chrony {
	case clockbound.ChronySynchronized:
		return clockbound.StatusSynchronized
	case clockbound.ChronyFreeRunning:
		if current == clockbound.StatusUnknown {
			return clockbound.StatusUnknown
		}
		return clockbound.StatusFreeRunning
	default:
		return clockbound.StatusUnknown
	}
}
