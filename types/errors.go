package types

import "errors"

// Sentinel errors for the rebalancer, grouped by component and by the
// taxonomy in the error-handling design: input-invalid, store-fatal,
// convergence, and replica-state errors. Use errors.Is/errors.As against
// these; wrap external errors with fmt.Errorf("...: %w", err).

// Input-invalid errors. All but ErrInvalidMinReplicas are rejected during
// VALIDATE, before any store write; ErrInvalidMinReplicas is raised by the
// no-downtime loop when it derives a step's availability floor, before that
// step's IdealState write.
var (
	// ErrHighLevelConsumerUnsupported is returned for a REALTIME table using
	// the legacy high-level consumer model, which cannot be rebalanced.
	ErrHighLevelConsumerUnsupported = errors.New("realtime table using high-level consumer cannot be rebalanced")

	// ErrDisabledRequiresDowntime is returned when a disabled table's IS is
	// rebalanced without downtime=true.
	ErrDisabledRequiresDowntime = errors.New("cannot rebalance disabled table without downtime")

	// ErrInvalidMinReplicas is returned when minReplicasToKeepUpForNoDowntime
	// is not less than the segment's replica count.
	ErrInvalidMinReplicas = errors.New("minReplicasToKeepUpForNoDowntime must be less than replica count")

	// ErrHeterogeneousReplicaCount is returned when segments in the same
	// assignment do not share a uniform replica count.
	ErrHeterogeneousReplicaCount = errors.New("table has segments with heterogeneous replica counts")

	// ErrNoIdealState is returned when a table has no IdealState document.
	ErrNoIdealState = errors.New("table has no ideal state")
)

// Store errors.
var (
	// ErrIdealStateDisappeared is a store-fatal error raised when the IS
	// document is deleted mid-rebalance (e.g. the table was dropped).
	ErrIdealStateDisappeared = errors.New("ideal state disappeared during rebalance")

	// ErrCASRetryBudgetExceeded is returned when the driver exhausts its
	// bounded compare-and-set retry budget without a successful write.
	ErrCASRetryBudgetExceeded = errors.New("exceeded compare-and-set retry budget")
)

// Convergence and replica-state errors.
var (
	// ErrConvergenceTimeout is raised when EV does not converge to IS within
	// the stabilization max-wait, and bestEfforts is false.
	ErrConvergenceTimeout = errors.New("external view did not converge within max wait")

	// ErrSegmentsInError is raised when EV reports a segment in ERROR state
	// for a non-OFFLINE IS entry, and bestEfforts is false.
	ErrSegmentsInError = errors.New("segments in error state")
)
