// Package strategy provides reference implementations of
// types.SegmentAssignmentStrategy.
//
// ConsistentHashStrategy places each segment's replicas on a consistent hash
// ring built from the relevant InstancePartitions pool, so that adding or
// removing instances reshuffles only the minimal share of segments. It is a
// deliberately simple, dependency-free-of-external-state strategy suitable
// as a default and as a template for replica-group-aware or fault-domain-aware
// strategies built on top of the same types.SegmentAssignmentStrategy contract.
package strategy
