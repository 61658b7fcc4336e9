package strategy

import (
	"fmt"

	"github.com/gyokketto/pinot/internal/hash"
	"github.com/gyokketto/pinot/types"
)

// DefaultVirtualNodesPerInstance is the virtual node count ConsistentHash
// uses when none is given, balancing distribution quality against ring
// construction cost.
const DefaultVirtualNodesPerInstance = 100

// ConsistentHashStrategy assigns each segment's replicas by hashing the
// segment name onto a consistent hash ring built from the pool of instances
// resolved for the table. It implements types.SegmentAssignmentStrategy.
type ConsistentHashStrategy struct {
	virtualNodesPerInstance int
	seed                    uint64
}

var _ types.SegmentAssignmentStrategy = (*ConsistentHashStrategy)(nil)

// New returns a ConsistentHashStrategy with default ring parameters.
func New() *ConsistentHashStrategy {
	return NewWithRing(DefaultVirtualNodesPerInstance, 0)
}

// NewWithRing returns a ConsistentHashStrategy with an explicit virtual node
// count and hash seed. A fixed non-zero seed is useful in tests that need
// reproducible placement independent of instance name ordering.
func NewWithRing(virtualNodesPerInstance int, seed uint64) *ConsistentHashStrategy {
	if virtualNodesPerInstance <= 0 {
		virtualNodesPerInstance = DefaultVirtualNodesPerInstance
	}

	return &ConsistentHashStrategy{virtualNodesPerInstance: virtualNodesPerInstance, seed: seed}
}

// RebalanceTable computes a target assignment by hashing every segment in
// currentAssignment onto a ring built from the instance pool resolved for
// the table's type. Segments not present in currentAssignment are left
// alone; this strategy rebalances an existing segment set, it does not add
// or remove segments.
func (s *ConsistentHashStrategy) RebalanceTable(
	currentAssignment types.Assignment,
	instancePartitionsMap map[types.InstancePartitionsType]*types.InstancePartitions,
	config types.RebalanceConfig,
) (types.Assignment, error) {
	pool, consuming := selectPool(instancePartitionsMap, config)
	if len(pool) == 0 {
		if len(currentAssignment) == 0 {
			return types.Assignment{}, nil
		}

		return nil, fmt.Errorf("strategy: no instances resolved to place %d segment(s)", len(currentAssignment))
	}

	ring := hash.NewRing(pool, s.virtualNodesPerInstance, s.seed)
	target := make(types.Assignment, len(currentAssignment))

	desired := types.SegmentOnline
	if consuming {
		desired = types.SegmentConsuming
	}

	for _, segment := range currentAssignment.SortedSegments() {
		replicaCount := currentAssignment[segment].ReplicaCount()
		if replicaCount == 0 {
			continue
		}
		if replicaCount > len(pool) {
			replicaCount = len(pool)
		}

		instances := ring.GetNodesForKey(segment, replicaCount)
		stateMap := make(types.InstanceStateMap, len(instances))
		for _, instance := range instances {
			stateMap[instance] = desired
		}

		target[segment] = stateMap
	}

	return target, nil
}

// selectPool picks the instance pool to hash segments onto, following the
// resolved InstancePartitions available for the table type:
//   - an OFFLINE record means an offline table, hashed straight onto its pool
//   - a COMPLETED record means realtime segments that have finished
//     consuming; when config.IncludeConsuming is set the consuming pool is
//     folded in too so completed segments can also land on consuming hosts
//   - otherwise a CONSUMING-only record means segments still being consumed
func selectPool(
	ipMap map[types.InstancePartitionsType]*types.InstancePartitions,
	config types.RebalanceConfig,
) (pool []string, consuming bool) {
	if off := ipMap[types.InstancePartitionsOffline]; off != nil {
		return off.AllInstances(), false
	}

	if comp := ipMap[types.InstancePartitionsCompleted]; comp != nil {
		pool = comp.AllInstances()
		if config.IncludeConsuming {
			if cons := ipMap[types.InstancePartitionsConsuming]; cons != nil {
				pool = unionStrings(pool, cons.AllInstances())
			}
		}

		return pool, false
	}

	if cons := ipMap[types.InstancePartitionsConsuming]; cons != nil {
		return cons.AllInstances(), true
	}

	return nil, false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}
