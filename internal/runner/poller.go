package runner

import (
	"context"
	"time"

	"github.com/aws/clock-bound/internal/chrony"
	"github.com/aws/clock-bound/internal/clockbound"
	"github.com/aws/clock-bound/internal/phc"
)

// ClockStatusSnapshot is what the runner needs out of a single poll: the
// chrony-reported status and the chrony-plus-PHC error bound in nanoseconds.
type ClockStatusSnapshot struct {
	ChronyStatus clockbound.ChronyClockStatus
	BoundNsec    int64
}

// ClockStatusSnapshotPoller is the runner's view of "ask upstream for a
// fresh error bound".
type ClockStatusSnapshotPoller interface {
	Poll(ctx context.Context) (ClockStatusSnapshot, error)
}

// ChronySnapshotPoller wraps a chrony.Querier and an optional PHC reader,
// adding the PHC term only when chrony's selected reference matches the
// configured PHC ref id.
type ChronySnapshotPoller struct {
	Querier chrony.Querier
	PHC     *phc.Reader
}

// Poll queries chrony tracking and derives (bound_nsec, status).
func (p *ChronySnapshotPoller) Poll(ctx context.Context) (ClockStatusSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, chrony.QueryTimeout)
	defer cancel()

	tracking, err := p.Querier.QueryTracking(ctx)
	if err != nil {
		return ClockStatusSnapshot{}, err
	}

	boundNsec := tracking.ExtractErrorBoundNsec()
	if p.PHC != nil && tracking.RefID == p.PHC.RefID() {
		phcNsec, err := p.PHC.ReadErrorBoundNsec()
		if err != nil {
			return ClockStatusSnapshot{}, err
		}
		boundNsec += phcNsec
	}

	return ClockStatusSnapshot{
		ChronyStatus: tracking.ChronyClockStatus(time.Now()),
		BoundNsec:    boundNsec,
	}, nil
}
