// Package stepplanner computes the assignment that sits between the current
// and target IdealState assignments while honoring the availability floor
// (spec §4.5, "getNextAssignment"). It is pure and deterministic: same
// inputs, same output, sorted by instance id.
package stepplanner

import (
	"github.com/gyokketto/pinot/types"
)

// NextAssignment computes the next assignment between current and target
// such that for every segment, at least minAvailableReplicas instances are
// common with current. Segments present only in target (new segments) or
// only in current (dropped segments) are carried through unchanged from
// target and omitted respectively, since a segment absent from current has
// no availability to protect and a segment absent from target is being
// dropped by the strategy's own decision.
func NextAssignment(current, target types.Assignment, minAvailableReplicas int) types.Assignment {
	next := make(types.Assignment, len(target))

	for _, segment := range target.SortedSegments() {
		targetStates := target[segment]
		currentStates, hasCurrent := current[segment]

		if !hasCurrent {
			next[segment] = cloneStates(targetStates)
			continue
		}

		next[segment] = nextSegmentAssignment(currentStates, targetStates, minAvailableReplicas)
	}

	return next
}

// nextSegmentAssignment applies the three-step algorithm from spec §4.5 to
// a single segment.
func nextSegmentAssignment(current, target types.InstanceStateMap, minAvailableReplicas int) types.InstanceStateMap {
	next := make(types.InstanceStateMap, len(target))

	// Step 1: common-keep. Instances present in both current and target
	// carry target's state, advancing their state-machine transition.
	for _, instance := range target.SortedInstances() {
		if _, ok := current[instance]; ok {
			next[instance] = target[instance]
		}
	}

	// Step 2: top-up with current. If common-keep didn't reach the
	// availability floor, add current-only instances at their current
	// state to keep them serving.
	if len(next) < minAvailableReplicas {
		for _, instance := range current.SortedInstances() {
			if len(next) >= minAvailableReplicas {
				break
			}
			if _, ok := next[instance]; ok {
				continue
			}
			next[instance] = current[instance]
		}
	}

	// Step 3: fill to target size. Add remaining target instances at
	// their target state until next reaches target's replica count.
	if len(next) < len(target) {
		for _, instance := range target.SortedInstances() {
			if len(next) >= len(target) {
				break
			}
			if _, ok := next[instance]; ok {
				continue
			}
			next[instance] = target[instance]
		}
	}

	return next
}

// EffectiveMinAvailableReplicas derives minAvailableReplicas for one segment
// from the configured floor, per spec §4.5.
//
//   - numReplicas = min(len(current), len(target))
//   - minReplicasToKeepUpForNoDowntime >= 0: must be < numReplicas, else
//     ErrInvalidMinReplicas is returned; otherwise it is used as-is. When
//     numReplicas is 0 (the segment is empty on one side) there is no
//     replica count to check against and the value is returned as-is.
//   - negative: max(numReplicas + minReplicasToKeepUpForNoDowntime, 0),
//     i.e. "max unavailable replicas" relative to the replica count.
func EffectiveMinAvailableReplicas(current, target types.InstanceStateMap, minReplicasToKeepUpForNoDowntime int) (int, error) {
	numReplicas := min(len(current), len(target))

	if minReplicasToKeepUpForNoDowntime >= 0 {
		if numReplicas > 0 && minReplicasToKeepUpForNoDowntime >= numReplicas {
			return 0, types.ErrInvalidMinReplicas
		}

		return minReplicasToKeepUpForNoDowntime, nil
	}

	return max(numReplicas+minReplicasToKeepUpForNoDowntime, 0), nil
}

func cloneStates(m types.InstanceStateMap) types.InstanceStateMap {
	out := make(types.InstanceStateMap, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
