// Package convergence implements the convergence checker (spec §4.4) and
// the external-view convergence waiter (spec §4.7).
package convergence

import (
	"github.com/gyokketto/pinot/types"
)

// Outcome is the tri-state result of one convergence evaluation.
type Outcome int

const (
	// Converged means every non-OFFLINE IS entry matches EV.
	Converged Outcome = iota
	// NotConverged means at least one entry is missing or mismatched in EV,
	// with no ERROR states encountered.
	NotConverged
	// ErrorState means EV reports ERROR for a non-OFFLINE IS entry and the
	// caller has not requested best-efforts tolerance.
	ErrorState
)

// Check evaluates whether ev has converged to is, following spec §4.4's
// per-segment rules. When bestEfforts is true, ERROR states are logged by
// the caller (Check only reports that one was seen and treated as passing)
// instead of producing ErrorState.
func Check(is types.Assignment, ev types.Assignment, bestEfforts bool) (outcome Outcome, warnings []string) {
	for _, segment := range is.SortedSegments() {
		isStates := is[segment]
		evStates, hasEV := ev[segment]

		for _, instance := range isStates.SortedInstances() {
			isState := isStates[instance]
			if isState == types.SegmentOffline {
				continue
			}

			if !hasEV {
				return NotConverged, warnings
			}

			evState, ok := evStates[instance]
			if !ok {
				return NotConverged, warnings
			}

			switch {
			case evState == isState:
				continue
			case evState == types.SegmentError:
				if !bestEfforts {
					return ErrorState, warnings
				}
				warnings = append(warnings, "segment "+segment+" instance "+instance+" is in ERROR state, treated as converged under bestEfforts")
			default:
				return NotConverged, warnings
			}
		}
	}

	return Converged, warnings
}
