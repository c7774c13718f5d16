package chrony

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Querier is the narrow interface the runner depends on; the chrony RPC
// transport itself is an external collaborator behind this boundary.
type Querier interface {
	QueryTracking(ctx context.Context) (Tracking, error)
	ResetSources(ctx context.Context) error
	BurstSources(ctx context.Context) error
}

// QueryTimeout bounds every single RPC to chronyd.
const QueryTimeout = 1 * time.Second

const (
	resetSourcesRetries       = 29
	resetSourcesBackoff       = 5 * time.Millisecond
	burstSourcesBackoff       = 100 * time.Millisecond
)

// ResetChronydWithRetries is the best-effort disruption-recovery sequence:
// attempt ResetSources up to n+1 times with a fixed backoff, then attempt
// BurstSources up to n+1 times with a longer fixed backoff. Each attempt
// logs its outcome and duration.
func ResetChronydWithRetries(ctx context.Context, q Querier, logger *logrus.Logger, n int) error {
	if err := retryFixed(ctx, logger, "reset_sources", n, resetSourcesBackoff, q.ResetSources); err != nil {
		return err
	}
	return retryFixed(ctx, logger, "burst_sources", n, burstSourcesBackoff, q.BurstSources)
}

func retryFixed(ctx context.Context, logger *logrus.Logger, name string, n int, backoff time.Duration, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= n; attempt++ {
		start := time.Now()
		err := op(ctx)
		elapsed := time.Since(start)
		entry := logger.WithFields(logrus.Fields{
			"op":       name,
			"attempt":  attempt,
			"duration": elapsed,
		})
		if err == nil {
			entry.Info("chronyd recovery command succeeded")
			return nil
		}
		entry.WithError(err).Warn("chronyd recovery command failed")
		lastErr = err
		if attempt < n {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
