// Package testhooks bundles the two process-wide disruption test flags into
// a daemon-scoped struct, replacing the pair of global atomic booleans this
// was learned from: the signal subsystem (and the SSH debug console) write
// them, the runner reads and clears them once per tick.
package testhooks

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Hooks holds the forced-disruption test flags.
type Hooks struct {
	pending atomic.Bool
	active  atomic.Bool
}

// RequestDisruption sets the pending flag, asking the runner to apply a
// forced Disrupted state on its next tick.
func (h *Hooks) RequestDisruption() {
	h.pending.Store(true)
	h.active.Store(true)
}

// ClearDisruption clears the active flag, letting the runner's busy-wait
// loop (§4.8 step 1) exit.
func (h *Hooks) ClearDisruption() {
	h.active.Store(false)
}

// TakePending reports and clears whether a disruption was requested since
// the last call.
func (h *Hooks) TakePending() bool {
	return h.pending.Swap(false)
}

// Active reports whether the forced-disruption state is still requested.
func (h *Hooks) Active() bool {
	return h.active.Load()
}

// WatchSignals listens for SIGUSR1 (request disruption) and SIGUSR2 (clear
// disruption) for the lifetime of ctx.Done(), using the ordinary os/signal
// channel pattern rather than an async-signal-safe handler registry: Go
// already delivers signal notifications on a regular goroutine.
func WatchSignals(done <-chan struct{}, h *Hooks, logger *logrus.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGUSR1:
					logger.Info("received SIGUSR1, requesting forced disruption")
					h.RequestDisruption()
				case syscall.SIGUSR2:
					logger.Info("received SIGUSR2, clearing forced disruption")
					h.ClearDisruption()
				}
			}
		}
	}()
}
