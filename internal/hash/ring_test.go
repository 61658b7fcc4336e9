package hash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRing(t *testing.T) {
	names := []string{"instance-0", "instance-1", "instance-2"}
	ring := NewRing(names, 100, 0)

	require.NotNil(t, ring)
	require.Equal(t, 300, ring.Size()) // 3 names * 100 virtual nodes
	require.ElementsMatch(t, names, ring.Names())
}

func TestNewRing_DedupesNames(t *testing.T) {
	ring := NewRing([]string{"a", "b", "a"}, 10, 0)
	require.ElementsMatch(t, []string{"a", "b"}, ring.Names())
	require.Equal(t, 20, ring.Size())
}

func TestRing_GetNode(t *testing.T) {
	t.Run("assigns keys consistently", func(t *testing.T) {
		names := []string{"instance-0", "instance-1"}
		ring := NewRing(names, 150, 0)

		for _, key := range []string{"segment_0", "another-key", "xyz"} {
			n1 := ring.GetNode(key)
			n2 := ring.GetNode(key)
			n3 := ring.GetNode(key)

			require.Equal(t, n1, n2, "key %s not consistent", key)
			require.Equal(t, n1, n3, "key %s not consistent", key)
			require.Contains(t, names, n1)
		}
	})

	t.Run("distributes keys across names", func(t *testing.T) {
		names := []string{"instance-0", "instance-1", "instance-2"}
		ring := NewRing(names, 150, 0)

		counts := make(map[string]int)
		for i := range 1000 {
			key := fmt.Sprintf("segment_%d", i)
			counts[ring.GetNode(key)]++
		}

		expected := 1000 / len(names)
		tolerance := expected * 20 / 100

		for _, name := range names {
			require.Contains(t, counts, name)
			count := counts[name]
			require.GreaterOrEqual(t, count, expected-tolerance, "name %s under-assigned", name)
			require.LessOrEqual(t, count, expected+tolerance, "name %s over-assigned", name)
		}
	})

	t.Run("returns empty string for empty ring", func(t *testing.T) {
		ring := NewRing([]string{}, 150, 0)
		require.Empty(t, ring.GetNode("any-key"))
	})
}

func TestRing_GetNodesForKey(t *testing.T) {
	t.Run("returns n distinct names", func(t *testing.T) {
		names := []string{"instance-0", "instance-1", "instance-2", "instance-3"}
		ring := NewRing(names, 150, 0)

		picked := ring.GetNodesForKey("segment_0", 3)
		require.Len(t, picked, 3)
		require.Len(t, uniqueStrings(picked), 3)
		for _, n := range picked {
			require.Contains(t, names, n)
		}
	})

	t.Run("consistent across calls", func(t *testing.T) {
		names := []string{"instance-0", "instance-1", "instance-2"}
		ring := NewRing(names, 150, 0)

		a := ring.GetNodesForKey("segment_7", 2)
		b := ring.GetNodesForKey("segment_7", 2)
		require.Equal(t, a, b)
	})

	t.Run("caps at available name count", func(t *testing.T) {
		names := []string{"instance-0", "instance-1"}
		ring := NewRing(names, 150, 0)

		picked := ring.GetNodesForKey("segment_0", 5)
		require.Len(t, picked, 2)
	})

	t.Run("empty ring returns nil", func(t *testing.T) {
		ring := NewRing([]string{}, 150, 0)
		require.Nil(t, ring.GetNodesForKey("segment_0", 3))
	})
}

func TestRing_CacheAffinity(t *testing.T) {
	t.Run("maintains cache affinity when instance added", func(t *testing.T) {
		initial := []string{"instance-0", "instance-1"}
		ring1 := NewRing(initial, 150, 12345)

		keys := make([]string, 1000)
		for i := range keys {
			keys[i] = fmt.Sprintf("segment_%d", i)
		}

		before := make(map[string]string, len(keys))
		for _, k := range keys {
			before[k] = ring1.GetNode(k)
		}

		grown := []string{"instance-0", "instance-1", "instance-2"}
		ring2 := NewRing(grown, 150, 12345)

		same := 0
		for _, k := range keys {
			if ring2.GetNode(k) == before[k] {
				same++
			}
		}

		affinity := (same * 100) / len(keys)
		require.GreaterOrEqual(t, affinity, 45,
			"cache affinity %d%% is too low (expected >= 45%%)", affinity)
	})

	t.Run("maintains cache affinity when instance removed", func(t *testing.T) {
		initial := []string{"instance-0", "instance-1", "instance-2"}
		ring1 := NewRing(initial, 150, 12345)

		keys := make([]string, 1000)
		for i := range keys {
			keys[i] = fmt.Sprintf("segment_%d", i)
		}

		before := make(map[string]string, len(keys))
		for _, k := range keys {
			before[k] = ring1.GetNode(k)
		}

		shrunk := []string{"instance-0", "instance-1"}
		ring2 := NewRing(shrunk, 150, 12345)

		same, total := 0, 0
		for _, k := range keys {
			if before[k] == "instance-2" {
				continue
			}
			total++
			if ring2.GetNode(k) == before[k] {
				same++
			}
		}

		affinity := (same * 100) / total
		require.GreaterOrEqual(t, affinity, 95,
			"cache affinity %d%% is too low (expected >= 95%%)", affinity)
	})
}

func TestRing_DifferentSeeds(t *testing.T) {
	names := []string{"instance-0", "instance-1", "instance-2"}

	ring1 := NewRing(names, 150, 0)
	ring2 := NewRing(names, 150, 12345)
	ring3 := NewRing(names, 150, 12345)

	different := 0
	for i := range 100 {
		key := fmt.Sprintf("segment_%d", i)

		n1 := ring1.GetNode(key)
		n2 := ring2.GetNode(key)
		n3 := ring3.GetNode(key)

		require.Equal(t, n2, n3, "same seed should produce same assignment")

		if n1 != n2 {
			different++
		}
	}

	require.GreaterOrEqual(t, different, 30, "different seeds should produce different distributions")
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
