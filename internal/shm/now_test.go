package shm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws/clock-bound/internal/clockbound"
)

func ts(sec, nsec int64) clockbound.TimeSpec {
	return clockbound.TimeSpec{Sec: sec, Nsec: nsec}
}

func TestNowSynchronizedWithinGracePeriod(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 0),
		VoidAfter:   ts(2000, 0),
		BoundNsec:   10_000,
		MaxDriftPPB: 1000,
		ClockStatus: clockbound.StatusSynchronized,
	}
	real := ts(1002, 0)
	mono := ts(1002, 0)

	earliest, latest, status, err := Now(s, real, mono)
	require.NoError(t, err)
	require.Equal(t, clockbound.StatusSynchronized, status)
	require.Equal(t, ts(1001, 999988000), earliest)
	require.Equal(t, ts(1002, 12000), latest)
}

func TestNowDowngradesToFreeRunningAfterGracePeriod(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 0),
		VoidAfter:   ts(2000, 0),
		BoundNsec:   1000,
		MaxDriftPPB: 10,
		ClockStatus: clockbound.StatusSynchronized,
	}
	_, _, status, err := Now(s, ts(1006, 0), ts(1006, 0))
	require.NoError(t, err)
	require.Equal(t, clockbound.StatusFreeRunning, status)
}

func TestNowDowngradesToUnknownAfterVoidAfter(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 0),
		VoidAfter:   ts(2000, 0),
		BoundNsec:   1000,
		MaxDriftPPB: 10,
		ClockStatus: clockbound.StatusSynchronized,
	}
	_, _, status, err := Now(s, ts(2001, 0), ts(2001, 0))
	require.NoError(t, err)
	require.Equal(t, clockbound.StatusUnknown, status)
}

func TestNowUnknownStatusStaysUnknown(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 0),
		VoidAfter:   ts(2000, 0),
		ClockStatus: clockbound.StatusUnknown,
	}
	_, _, status, err := Now(s, ts(1002, 0), ts(1002, 0))
	require.NoError(t, err)
	require.Equal(t, clockbound.StatusUnknown, status)
}

func TestNowCausalityBreach(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 0),
		VoidAfter:   ts(2000, 0),
		ClockStatus: clockbound.StatusSynchronized,
	}
	_, _, _, err := Now(s, ts(999, 0), ts(999, 0))
	require.Error(t, err)
	var cbErr *clockbound.Error
	require.True(t, errors.As(err, &cbErr))
	require.Equal(t, clockbound.CausalityBreach, cbErr.Kind)
}

func TestNowToleratesSlackBelowThreshold(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 500),
		VoidAfter:   ts(2000, 0),
		BoundNsec:   100,
		MaxDriftPPB: 10,
		ClockStatus: clockbound.StatusSynchronized,
	}
	earliest, latest, status, err := Now(s, ts(1000, 500), ts(1000, 0))
	require.NoError(t, err)
	require.Equal(t, clockbound.StatusSynchronized, status)
	// d collapses to zero: bound is exactly BoundNsec either side of real.
	require.Equal(t, ts(1000, 400), earliest)
	require.Equal(t, ts(1000, 600), latest)
}

func TestNowRejectsInvalidMaxDriftPPB(t *testing.T) {
	s := ClockErrorBound{MaxDriftPPB: 1_000_000_000, ClockStatus: clockbound.StatusSynchronized}
	_, _, _, err := Now(s, ts(0, 0), ts(0, 0))
	require.Error(t, err)
	var cbErr *clockbound.Error
	require.True(t, errors.As(err, &cbErr))
	require.Equal(t, clockbound.SegmentMalformed, cbErr.Kind)
}

func TestNowClampsNegativeBoundNsec(t *testing.T) {
	s := ClockErrorBound{
		AsOf:        ts(1000, 0),
		VoidAfter:   ts(2000, 0),
		BoundNsec:   -5,
		MaxDriftPPB: 0,
		ClockStatus: clockbound.StatusSynchronized,
	}
	earliest, latest, _, err := Now(s, ts(1000, 0), ts(1000, 0))
	require.NoError(t, err)
	require.Equal(t, ts(1000, 0), earliest)
	require.Equal(t, ts(1000, 0), latest)
}
