package convergence

import (
	"context"
	"fmt"
	"time"

	"github.com/gyokketto/pinot/types"
)

// DefaultCheckInterval and DefaultMaxWait are the package constants from
// spec §5: EXTERNAL_VIEW_CHECK_INTERVAL and EXTERNAL_VIEW_STABILIZATION_MAX_WAIT.
// NewWaiter falls back to them when given a non-positive interval or max wait.
const (
	DefaultCheckInterval = time.Second
	DefaultMaxWait       = time.Hour
)

// Waiter polls ExternalView until it converges to the latest IdealState, or
// until maxWait elapses (spec §4.7). Its poll loop is ticker-driven and
// blocks until the condition is met, the wait times out, or ctx is done.
type Waiter struct {
	store   types.MetadataStoreGateway
	logger  types.Logger
	metrics types.ConvergenceMetrics

	checkInterval time.Duration
	maxWait       time.Duration
}

// NewWaiter creates a Waiter. Zero checkInterval/maxWait fall back to the
// package defaults.
func NewWaiter(store types.MetadataStoreGateway, logger types.Logger, metrics types.ConvergenceMetrics, checkInterval, maxWait time.Duration) *Waiter {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &Waiter{store: store, logger: logger, metrics: metrics, checkInterval: checkInterval, maxWait: maxWait}
}

// Wait blocks until ExternalView converges to the current IdealState for
// table, an ERROR state aborts the wait, or maxWait elapses. It returns the
// latest IdealState it observed on every path except context cancellation,
// store errors, and a vanished IdealState, since the driver's no-downtime loop needs it even on
// timeout (to detect out-of-band IS changes) and under bestEfforts.
//
//   - Converged: (idealState, nil)
//   - ErrorState, bestEfforts=false: (idealState, types.ErrSegmentsInError)
//   - Timeout, bestEfforts=false: (idealState, types.ErrConvergenceTimeout)
//   - Timeout or ErrorState, bestEfforts=true: (idealState, nil), warning logged
//   - IS disappears mid-wait: (nil, types.ErrIdealStateDisappeared)
func (w *Waiter) Wait(ctx context.Context, tableNameWithType string, bestEfforts bool) (*types.IdealState, error) {
	deadline := time.Now().Add(w.maxWait)
	start := time.Now()

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		is, ev, err := w.readLatest(ctx, tableNameWithType)
		if err != nil {
			return nil, err
		}
		if is == nil {
			return nil, types.ErrIdealStateDisappeared
		}

		outcome, warnings := Check(is.Assignment, ev, bestEfforts)
		for _, warning := range warnings {
			w.logger.Warn(warning, "table", tableNameWithType)
		}

		switch outcome {
		case Converged:
			w.record(tableNameWithType, "converged", start)
			return is, nil
		case ErrorState:
			w.record(tableNameWithType, "error", start)
			return is, fmt.Errorf("table %s: %w", tableNameWithType, types.ErrSegmentsInError)
		case NotConverged:
			// fall through to the timeout/poll check below.
		}

		if time.Now().After(deadline) {
			w.record(tableNameWithType, "timeout", start)
			if bestEfforts {
				w.logger.Warn("external view did not converge within max wait, continuing under bestEfforts", "table", tableNameWithType)
				return is, nil
			}

			return is, fmt.Errorf("table %s: %w", tableNameWithType, types.ErrConvergenceTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Waiter) readLatest(ctx context.Context, tableNameWithType string) (*types.IdealState, types.Assignment, error) {
	is, err := w.store.ReadIdealState(ctx, tableNameWithType)
	if err != nil {
		return nil, nil, fmt.Errorf("wait for convergence: read ideal state: %w", err)
	}
	if is == nil {
		return nil, nil, nil
	}

	ev, err := w.store.ReadExternalView(ctx, tableNameWithType)
	if err != nil {
		return nil, nil, fmt.Errorf("wait for convergence: read external view: %w", err)
	}

	var evAssignment types.Assignment
	if ev != nil {
		evAssignment = ev.Assignment
	}

	return is, evAssignment, nil
}

func (w *Waiter) record(table, outcome string, start time.Time) {
	w.metrics.RecordConvergenceWait(table, outcome, time.Since(start).Seconds())
}
