package runner

import "github.com/aws/clock-bound/internal/shm"

// Observer receives a copy of every record the runner publishes, letting
// the HTTP status API and the metrics publisher follow daemon state without
// touching the shared-memory segment themselves.
type Observer interface {
	OnPublish(record shm.ClockErrorBound, chronyStatus string, disruptionState string)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(record shm.ClockErrorBound, chronyStatus string, disruptionState string)

// OnPublish implements Observer.
func (f ObserverFunc) OnPublish(record shm.ClockErrorBound, chronyStatus string, disruptionState string) {
	f(record, chronyStatus, disruptionState)
}
