package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws/clock-bound/internal/clockbound"
)

func TestTransitionDisruptionTakesPriority(t *testing.T) {
	got := Transition(clockbound.StatusSynchronized, clockbound.ChronySynchronized, clockbound.DisruptionDisrupted)
	require.Equal(t, clockbound.StatusDisrupted, got)
}

func TestTransitionDisruptedAlwaysWinsRegardlessOfChrony(t *testing.T) {
	for _, chrony := range []clockbound.ChronyClockStatus{clockbound.ChronyUnknown, clockbound.ChronySynchronized, clockbound.ChronyFreeRunning} {
		got := Transition(clockbound.StatusFreeRunning, chrony, clockbound.DisruptionDisrupted)
		require.Equal(t, clockbound.StatusDisrupted, got)
	}
}

func TestTransitionLeavingDisruptedLandsOnUnknown(t *testing.T) {
	got := Transition(clockbound.StatusDisrupted, clockbound.ChronySynchronized, clockbound.DisruptionReliable)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionLeavingDisruptedIgnoresChronyEvenWhenUnknownDisruption(t *testing.T) {
	got := Transition(clockbound.StatusDisrupted, clockbound.ChronyFreeRunning, clockbound.DisruptionUnknown)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionUnknownDisruptionForcesUnknown(t *testing.T) {
	got := Transition(clockbound.StatusSynchronized, clockbound.ChronySynchronized, clockbound.DisruptionUnknown)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionReliableSynchronizedChrony(t *testing.T) {
	got := Transition(clockbound.StatusFreeRunning, clockbound.ChronySynchronized, clockbound.DisruptionReliable)
	require.Equal(t, clockbound.StatusSynchronized, got)
}

func TestTransitionFreeRunningChronyFromUnknownStaysUnknown(t *testing.T) {
	got := Transition(clockbound.StatusUnknown, clockbound.ChronyFreeRunning, clockbound.DisruptionReliable)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionFreeRunningChronyFromSynchronizedDowngrades(t *testing.T) {
	got := Transition(clockbound.StatusSynchronized, clockbound.ChronyFreeRunning, clockbound.DisruptionReliable)
	require.Equal(t, clockbound.StatusFreeRunning, got)
}

func TestTransitionFreeRunningChronyFromFreeRunningStays(t *testing.T) {
	got := Transition(clockbound.StatusFreeRunning, clockbound.ChronyFreeRunning, clockbound.DisruptionReliable)
	require.Equal(t, clockbound.StatusFreeRunning, got)
}

func TestTransitionChronyUnknownForcesUnknown(t *testing.T) {
	got := Transition(clockbound.StatusSynchronized, clockbound.ChronyUnknown, clockbound.DisruptionReliable)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionNoDisruptionSynchronized(t *testing.T) {
	got := TransitionNoDisruption(clockbound.StatusFreeRunning, clockbound.ChronySynchronized)
	require.Equal(t, clockbound.StatusSynchronized, got)
}

func TestTransitionNoDisruptionFreeRunningFromUnknownStaysUnknown(t *testing.T) {
	got := TransitionNoDisruption(clockbound.StatusUnknown, clockbound.ChronyFreeRunning)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionNoDisruptionFreeRunningFromSynchronizedDowngrades(t *testing.T) {
	got := TransitionNoDisruption(clockbound.StatusSynchronized, clockbound.ChronyFreeRunning)
	require.Equal(t, clockbound.StatusFreeRunning, got)
}

func TestTransitionNoDisruptionChronyUnknownForcesUnknown(t *testing.T) {
	got := TransitionNoDisruption(clockbound.StatusSynchronized, clockbound.ChronyUnknown)
	require.Equal(t, clockbound.StatusUnknown, got)
}

func TestTransitionNoDisruptionNeverReturnsDisrupted(t *testing.T) {
	for _, current := range []clockbound.ClockStatus{clockbound.StatusUnknown, clockbound.StatusSynchronized, clockbound.StatusFreeRunning, clockbound.StatusDisrupted} {
		for _, chrony := range []clockbound.ChronyClockStatus{clockbound.ChronyUnknown, clockbound.ChronySynchronized, clockbound.ChronyFreeRunning} {
			got := TransitionNoDisruption(current, chrony)
			require.NotEqual(t, clockbound.StatusDisrupted, got)
		}
	}
}
