package server

import (
	"sync"

	"github.com/aws/clock-bound/internal/runner"
	"github.com/aws/clock-bound/internal/shm"
)

// StatusView is a runner.Observer that just remembers the most recent
// published record, so both the HTTP status API and the SSH debug console
// can answer queries without touching the shared-memory segment or the
// runner's internal state directly.
type StatusView struct {
	mu          sync.RWMutex
	last        shm.ClockErrorBound
	lastChrony  string
	lastDisrupt string
	haveRecord  bool
}

// NewStatusView builds an empty StatusView.
func NewStatusView() *StatusView {
	return &StatusView{}
}

// OnPublish implements runner.Observer.
func (v *StatusView) OnPublish(record shm.ClockErrorBound, chronyStatus, disruptionState string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = record
	v.lastChrony = chronyStatus
	v.lastDisrupt = disruptionState
	v.haveRecord = true
}

var _ runner.Observer = (*StatusView)(nil)

// Snapshot returns the last published record and whether one has arrived
// yet.
func (v *StatusView) Snapshot() (record shm.ClockErrorBound, chronyStatus, disruptionState string, ok bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.last, v.lastChrony, v.lastDisrupt, v.haveRecord
}
