package rebalancer

import (
	"errors"

	"github.com/gyokketto/pinot/types"
)

// Sentinel errors returned by the Driver, re-exported from the types package
// so callers can errors.Is against rebalancer.ErrX without importing types
// directly.
var (
	// ErrHighLevelConsumerUnsupported is returned for a REALTIME table using
	// the legacy high-level consumer model (invariant 4).
	ErrHighLevelConsumerUnsupported = types.ErrHighLevelConsumerUnsupported

	// ErrDisabledRequiresDowntime is returned when a disabled table's IS is
	// rebalanced without downtime=true (invariant 3).
	ErrDisabledRequiresDowntime = types.ErrDisabledRequiresDowntime

	// ErrInvalidMinReplicas is returned when minReplicasToKeepUpForNoDowntime
	// is not less than the segment's replica count.
	ErrInvalidMinReplicas = types.ErrInvalidMinReplicas

	// ErrHeterogeneousReplicaCount is returned when segments in the same
	// assignment do not share a uniform replica count.
	ErrHeterogeneousReplicaCount = types.ErrHeterogeneousReplicaCount

	// ErrNoIdealState is returned when a table has no IdealState document.
	ErrNoIdealState = types.ErrNoIdealState

	// ErrIdealStateDisappeared is raised when the IS document is deleted
	// mid-rebalance.
	ErrIdealStateDisappeared = types.ErrIdealStateDisappeared

	// ErrCASRetryBudgetExceeded is returned when the driver exhausts its
	// bounded compare-and-set retry budget without a successful write.
	ErrCASRetryBudgetExceeded = types.ErrCASRetryBudgetExceeded

	// ErrConvergenceTimeout is raised when EV does not converge within the
	// stabilization max-wait and bestEfforts is false.
	ErrConvergenceTimeout = types.ErrConvergenceTimeout

	// ErrSegmentsInError is raised when EV reports a segment in ERROR state
	// for a non-OFFLINE IS entry and bestEfforts is false.
	ErrSegmentsInError = types.ErrSegmentsInError

	// ErrGatewayRequired is returned when NewDriver is called with a nil
	// gateway.
	ErrGatewayRequired = errors.New("metadata store gateway is required")

	// ErrResolverRequired is returned when NewDriver is called with a nil
	// resolver.
	ErrResolverRequired = errors.New("instance partitions resolver is required")

	// ErrStrategyRequired is returned when NewDriver is called with a nil
	// segment assignment strategy.
	ErrStrategyRequired = errors.New("segment assignment strategy is required")
)
