package types

// SegmentAssignmentStrategy computes a target segment assignment from the
// current one and the resolved instance pools. Implementations must be a
// pure function of their inputs: same currentAssignment, instancePartitionsMap,
// and config always produce the same targetAssignment. The output must be a
// well-formed Assignment (uniform replica count per segment) whose instance
// set is a subset of the union of instancePartitionsMap.
//
// The concrete strategies (offline, balanced, replica-group aware) are
// external collaborators; this package only specifies the contract and
// ships a minimal reference implementation in the strategy package.
type SegmentAssignmentStrategy interface {
	RebalanceTable(
		currentAssignment Assignment,
		instancePartitionsMap map[InstancePartitionsType]*InstancePartitions,
		config RebalanceConfig,
	) (Assignment, error)
}
