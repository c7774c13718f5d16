// Package client is the public clock-bound client library: open the CEB
// (and, where paired, VMClock) segments and answer Now() queries.
package client

import (
	"time"

	"github.com/aws/clock-bound/internal/clockbound"
	"github.com/aws/clock-bound/internal/shm"
	"github.com/aws/clock-bound/internal/vmclock"
)

// DefaultClockboundPath is the daemon's conventional publication path.
const DefaultClockboundPath = "/var/run/clockbound/shm0"

// Client reads the CEB segment (and, when paired, the VMClock segment) to
// answer error-bounded time queries. Like the readers it wraps, a Client is
// not safe for concurrent use; each goroutine should open its own.
type Client struct {
	ceb     *shm.Reader
	vmclock *vmclock.Reader
}

// Open opens the CEB segment at clockboundPath. If the segment reports
// clock_disruption_support_enabled, it also opens the VMClock segment at
// vmclockPath.
func Open(clockboundPath, vmclockPath string) (*Client, error) {
	ceb, err := shm.OpenReader(clockboundPath)
	if err != nil {
		return nil, err
	}

	snap, err := ceb.Snapshot()
	if err != nil {
		ceb.Close()
		return nil, err
	}

	c := &Client{ceb: ceb}
	if snap.ClockDisruptionSupportEnabled {
		vm, err := vmclock.Open(vmclockPath)
		if err != nil {
			ceb.Close()
			return nil, err
		}
		c.vmclock = vm
	}
	return c, nil
}

// Now returns the error-bounded interval containing true time at the
// caller's current instant, and a qualitative clock status. See
// SPEC_FULL.md §4.9.
func (c *Client) Now() (earliest, latest time.Time, status clockbound.ClockStatus, err error) {
	snap, err := c.ceb.Snapshot()
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}

	real, err := clockbound.ReadRealtime()
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	mono, err := clockbound.ReadMonotonic()
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}

	e, l, s, err := shm.Now(snap, real, mono)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}

	if snap.ClockDisruptionSupportEnabled && c.vmclock != nil {
		vmBody, err := c.vmclock.Snapshot()
		if err != nil {
			return time.Time{}, time.Time{}, 0, err
		}
		if vmBody.DisruptionMarker != snap.DisruptionMarker {
			s = clockbound.StatusUnknown
		}
	}

	return e.ToTime(), l.ToTime(), s, nil
}

// Close releases the underlying segment mappings.
func (c *Client) Close() error {
	var err error
	if c.vmclock != nil {
		err = c.vmclock.Close()
	}
	if cebErr := c.ceb.Close(); cebErr != nil {
		err = cebErr
	}
	return err
}
