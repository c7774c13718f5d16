// Package runner implements the clock-bound daemon's main control loop
// (SPEC_FULL.md §4.8): once per second it folds disruption sources and a
// fresh chrony snapshot into the clock-status FSM and publishes the result.
package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aws/clock-bound/internal/chrony"
	"github.com/aws/clock-bound/internal/clockbound"
	"github.com/aws/clock-bound/internal/fsm"
	"github.com/aws/clock-bound/internal/shm"
	"github.com/aws/clock-bound/internal/testhooks"
	"github.com/aws/clock-bound/internal/vmclock"
)

const (
	restartGracePeriod    = 5 * time.Second
	voidAfterWindow       = 1000 * time.Second
	resetRetryCount       = 29
	resetCooldownDuration = 10 * time.Second
)

// Config holds the daemon's runtime parameters, resolved from CLI flags or
// the optional YAML config file by package config.
type Config struct {
	MaxDriftPPB                   uint32
	ClockDisruptionSupportEnabled bool
}

// Runner owns the daemon's mutable FSM state and drives the control loop.
type Runner struct {
	cfg    Config
	logger *logrus.Logger

	writer        *shm.Writer
	vmclockReader *vmclock.Reader
	poller        ClockStatusSnapshotPoller
	querier       chrony.Querier
	hooks         *testhooks.Hooks
	observers     []Observer

	fsmState        clockbound.ClockStatus
	chronyStatus    clockbound.ChronyClockStatus
	disruptionState clockbound.ClockDisruptionState
	trackedMarker   uint64

	boundNsec int64
	asOf      clockbound.TimeSpec
}

// New builds a Runner. vmclockReader and querier may be nil when disruption
// support is disabled, in which case the no-disruption FSM variant is used.
func New(cfg Config, logger *logrus.Logger, writer *shm.Writer, vmclockReader *vmclock.Reader, poller ClockStatusSnapshotPoller, querier chrony.Querier, hooks *testhooks.Hooks) *Runner {
	return &Runner{
		cfg:           cfg,
		logger:        logger,
		writer:        writer,
		vmclockReader: vmclockReader,
		poller:        poller,
		querier:       querier,
		hooks:         hooks,
	}
}

// AddObserver registers o to be notified after every publish.
func (r *Runner) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Run drives the control loop until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(1 * time.Second):
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	r.handleDisruptionSources(ctx)
	if r.fsmState == clockbound.StatusDisrupted {
		r.processDisruptedState(ctx)
	}

	asOfNow, err := clockbound.ReadMonotonic()
	if err != nil {
		r.logger.WithError(err).Fatal("failed to read monotonic clock")
	}

	snapshot, err := r.poller.Poll(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("clock status snapshot poll failed")
		r.handleMissingSnapshot(asOfNow)
	} else {
		r.applyChronyStatus(snapshot.ChronyStatus)
		if snapshot.ChronyStatus == clockbound.ChronySynchronized {
			r.boundNsec = snapshot.BoundNsec
			r.asOf = asOfNow
		}
	}

	r.publish()
}

// handleDisruptionSources implements §4.8 step 1.
func (r *Runner) handleDisruptionSources(ctx context.Context) {
	if r.hooks != nil && r.cfg.ClockDisruptionSupportEnabled && r.hooks.TakePending() {
		r.applyDisruption(clockbound.DisruptionDisrupted)
		r.publish()
		for r.hooks.Active() {
			time.Sleep(1 * time.Second)
		}
		return
	}

	if r.vmclockReader == nil {
		return
	}
	body, err := r.vmclockReader.Snapshot()
	if err != nil {
		r.logger.WithError(err).Warn("vmclock snapshot failed")
		return
	}
	if body.DisruptionMarker != r.trackedMarker {
		r.trackedMarker = body.DisruptionMarker
		r.applyDisruption(clockbound.DisruptionDisrupted)
	} else {
		r.applyDisruption(clockbound.DisruptionReliable)
	}
}

// processDisruptedState implements §4.8 step 2: loop forever, resetting
// chronyd, until recovery succeeds.
func (r *Runner) processDisruptedState(ctx context.Context) {
	for r.fsmState == clockbound.StatusDisrupted {
		if r.querier == nil {
			return
		}
		err := chrony.ResetChronydWithRetries(ctx, r.querier, r.logger, resetRetryCount)
		if err == nil {
			r.applyDisruption(clockbound.DisruptionUnknown)
			return
		}
		r.logger.WithError(err).Error("chronyd reset failed, retrying after cooldown")
		select {
		case <-ctx.Done():
			return
		case <-time.After(resetCooldownDuration):
		}
	}
}

// handleMissingSnapshot implements §4.8 step 3's failure path.
func (r *Runner) handleMissingSnapshot(asOfNow clockbound.TimeSpec) {
	if asOfNow.Sub(r.asOf) < restartGracePeriod {
		r.applyChronyStatus(clockbound.ChronyFreeRunning)
	} else {
		r.applyChronyStatus(clockbound.ChronyUnknown)
	}
}

func (r *Runner) applyDisruption(state clockbound.ClockDisruptionState) {
	r.disruptionState = state
	r.recomputeFSM()
}

func (r *Runner) applyChronyStatus(status clockbound.ChronyClockStatus) {
	r.chronyStatus = status
	r.recomputeFSM()
}

func (r *Runner) recomputeFSM() {
	if r.cfg.ClockDisruptionSupportEnabled {
		r.fsmState = fsm.Transition(r.fsmState, r.chronyStatus, r.disruptionState)
	} else {
		r.fsmState = fsm.TransitionNoDisruption(r.fsmState, r.chronyStatus)
	}
}

// publish implements §4.8 step 4.
func (r *Runner) publish() {
	record := shm.ClockErrorBound{
		AsOf:                          r.asOf,
		VoidAfter:                     r.asOf.Add(voidAfterWindow),
		BoundNsec:                     r.boundNsec,
		DisruptionMarker:              r.trackedMarker,
		MaxDriftPPB:                   r.cfg.MaxDriftPPB,
		ClockStatus:                   r.fsmState,
		ClockDisruptionSupportEnabled: r.cfg.ClockDisruptionSupportEnabled,
	}
	r.writer.Write(record)

	for _, o := range r.observers {
		o.OnPublish(record, r.chronyStatus.String(), r.disruptionState.String())
	}
}
