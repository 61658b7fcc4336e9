package strategy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyokketto/pinot/types"
)

func offlinePool(instances ...string) map[types.InstancePartitionsType]*types.InstancePartitions {
	return map[types.InstancePartitionsType]*types.InstancePartitions{
		types.InstancePartitionsOffline: {
			Name:        "myTable_OFFLINE",
			Type:        types.InstancePartitionsOffline,
			Partitions:  map[string][]string{"0_0": instances},
			NumReplicas: len(instances),
		},
	}
}

func TestNew(t *testing.T) {
	s := New()
	require.Equal(t, DefaultVirtualNodesPerInstance, s.virtualNodesPerInstance)
}

func TestNewWithRing_InvalidVirtualNodesFallsBackToDefault(t *testing.T) {
	s := NewWithRing(0, 42)
	require.Equal(t, DefaultVirtualNodesPerInstance, s.virtualNodesPerInstance)
	require.Equal(t, uint64(42), s.seed)
}

func TestRebalanceTable_EmptyAssignment(t *testing.T) {
	s := New()
	target, err := s.RebalanceTable(types.Assignment{}, offlinePool("server-0", "server-1"), types.RebalanceConfig{})
	require.NoError(t, err)
	require.Empty(t, target)
}

func TestRebalanceTable_NoPoolWithSegments(t *testing.T) {
	s := New()
	current := types.Assignment{
		"segment_0": {"server-0": types.SegmentOnline},
	}

	_, err := s.RebalanceTable(current, nil, types.RebalanceConfig{})
	require.Error(t, err)
}

func TestRebalanceTable_PreservesReplicaCount(t *testing.T) {
	s := NewWithRing(150, 7)
	current := types.Assignment{
		"segment_0": {"server-0": types.SegmentOnline, "server-1": types.SegmentOnline},
		"segment_1": {"server-1": types.SegmentOnline, "server-2": types.SegmentOnline},
	}
	pool := offlinePool("server-0", "server-1", "server-2", "server-3")

	target, err := s.RebalanceTable(current, pool, types.RebalanceConfig{})
	require.NoError(t, err)
	require.Len(t, target, 2)

	for segment, states := range target {
		require.Len(t, states, current[segment].ReplicaCount())
		for instance, state := range states {
			require.Equal(t, types.SegmentOnline, state)
			require.Contains(t, []string{"server-0", "server-1", "server-2", "server-3"}, instance)
		}
	}
}

func TestRebalanceTable_CapsReplicaCountToPoolSize(t *testing.T) {
	s := New()
	current := types.Assignment{
		"segment_0": {"server-0": types.SegmentOnline, "server-1": types.SegmentOnline, "server-2": types.SegmentOnline},
	}
	pool := offlinePool("server-0", "server-1")

	target, err := s.RebalanceTable(current, pool, types.RebalanceConfig{})
	require.NoError(t, err)
	require.Len(t, target["segment_0"], 2)
}

func TestRebalanceTable_Deterministic(t *testing.T) {
	s := NewWithRing(150, 99)
	current := types.Assignment{
		"segment_0": {"server-0": types.SegmentOnline},
		"segment_1": {"server-0": types.SegmentOnline},
		"segment_2": {"server-0": types.SegmentOnline},
	}
	pool := offlinePool("server-0", "server-1", "server-2", "server-3")

	first, err := s.RebalanceTable(current, pool, types.RebalanceConfig{})
	require.NoError(t, err)

	second, err := s.RebalanceTable(current, pool, types.RebalanceConfig{})
	require.NoError(t, err)

	require.True(t, first.Equal(second))
}

func TestRebalanceTable_RealtimeCompletedUsesOnline(t *testing.T) {
	s := New()
	current := types.Assignment{"segment_0": {"server-0": types.SegmentOnline}}
	ipMap := map[types.InstancePartitionsType]*types.InstancePartitions{
		types.InstancePartitionsCompleted: {
			Type:       types.InstancePartitionsCompleted,
			Partitions: map[string][]string{"0_0": {"server-0", "server-1"}},
		},
	}

	target, err := s.RebalanceTable(current, ipMap, types.RebalanceConfig{})
	require.NoError(t, err)
	for _, state := range target["segment_0"] {
		require.Equal(t, types.SegmentOnline, state)
	}
}

func TestRebalanceTable_ConsumingOnlyUsesConsumingState(t *testing.T) {
	s := New()
	current := types.Assignment{"segment_0": {"server-0": types.SegmentConsuming}}
	ipMap := map[types.InstancePartitionsType]*types.InstancePartitions{
		types.InstancePartitionsConsuming: {
			Type:       types.InstancePartitionsConsuming,
			Partitions: map[string][]string{"0_0": {"server-0", "server-1"}},
		},
	}

	target, err := s.RebalanceTable(current, ipMap, types.RebalanceConfig{})
	require.NoError(t, err)
	for _, state := range target["segment_0"] {
		require.Equal(t, types.SegmentConsuming, state)
	}
}

func TestRebalanceTable_IncludeConsumingFoldsPoolIn(t *testing.T) {
	s := NewWithRing(150, 5)
	current := types.Assignment{}
	for i := range 20 {
		current[fmt.Sprintf("segment_%d", i)] = types.InstanceStateMap{"server-0": types.SegmentOnline}
	}

	ipMap := map[types.InstancePartitionsType]*types.InstancePartitions{
		types.InstancePartitionsCompleted: {
			Type:       types.InstancePartitionsCompleted,
			Partitions: map[string][]string{"0_0": {"server-0"}},
		},
		types.InstancePartitionsConsuming: {
			Type:       types.InstancePartitionsConsuming,
			Partitions: map[string][]string{"0_0": {"server-1"}},
		},
	}

	withoutConsuming, err := s.RebalanceTable(current, ipMap, types.RebalanceConfig{})
	require.NoError(t, err)
	withConsuming, err := s.RebalanceTable(current, ipMap, types.RebalanceConfig{IncludeConsuming: true})
	require.NoError(t, err)

	seenOnlyServer0 := true
	for _, states := range withoutConsuming {
		for instance := range states {
			if instance != "server-0" {
				seenOnlyServer0 = false
			}
		}
	}
	require.True(t, seenOnlyServer0, "without IncludeConsuming, only the completed pool should be used")

	usesServer1 := false
	for _, states := range withConsuming {
		if _, ok := states["server-1"]; ok {
			usesServer1 = true
		}
	}
	require.True(t, usesServer1, "with IncludeConsuming, some segments should land on the consuming instance")
}
