// Package hash implements a consistent hash ring with virtual nodes, used by
// the strategy package's reference segment assignment strategy to map
// segments onto a pool of instances with stable placement across
// membership changes.
package hash

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// Ring implements a consistent hash ring with virtual nodes over a fixed set
// of named nodes (instance ids). Consistent hashing provides stable
// placement with minimal churn when the node set changes.
type Ring struct {
	nodes []virtualNode
	names []string
	seed  uint64
}

type virtualNode struct {
	hash    uint64
	nameIdx int
}

// NewRing creates a consistent hash ring over names, deduplicated and given
// virtualNodesPerName virtual nodes each. seed of 0 uses the unseeded hash.
func NewRing(names []string, virtualNodesPerName int, seed uint64) *Ring {
	r := &Ring{seed: seed}

	if len(names) > 0 {
		seen := make(map[string]struct{}, len(names))
		uniq := make([]string, 0, len(names))
		for _, n := range names {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			uniq = append(uniq, n)
		}
		r.names = uniq
	} else {
		r.names = []string{}
	}

	r.nodes = make([]virtualNode, 0, len(r.names)*virtualNodesPerName)
	for i, name := range r.names {
		r.addNode(name, i, virtualNodesPerName)
	}

	slices.SortFunc(r.nodes, func(a, b virtualNode) int {
		switch {
		case a.hash < b.hash:
			return -1
		case a.hash > b.hash:
			return 1
		default:
			return 0
		}
	})

	return r
}

// GetNode returns the name responsible for key, or "" if the ring is empty.
func (r *Ring) GetNode(key string) string {
	if len(r.nodes) == 0 {
		return ""
	}

	idx := r.indexForHash(r.hash(key))

	return r.names[r.nodes[idx].nameIdx]
}

// GetNodesForKey returns up to n distinct names for key by walking the ring
// clockwise from key's position, skipping names already selected. Used to
// pick a segment's replica set from a single hash position.
func (r *Ring) GetNodesForKey(key string, n int) []string {
	if len(r.nodes) == 0 || n <= 0 {
		return nil
	}
	if n > len(r.names) {
		n = len(r.names)
	}

	start := r.indexForHash(r.hash(key))
	seen := make(map[int]struct{}, n)
	out := make([]string, 0, n)

	for i := 0; len(out) < n && i < len(r.nodes); i++ {
		node := r.nodes[(start+i)%len(r.nodes)]
		if _, ok := seen[node.nameIdx]; ok {
			continue
		}
		seen[node.nameIdx] = struct{}{}
		out = append(out, r.names[node.nameIdx])
	}

	return out
}

// Names returns the ring's unique node names.
func (r *Ring) Names() []string {
	return append([]string(nil), r.names...)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

func (r *Ring) addNode(name string, nameIdx, virtualNodes int) {
	for i := range virtualNodes {
		var h uint64
		if r.seed != 0 {
			h = xxh3.HashStringSeed(name, r.seed)
		} else {
			h = xxh3.HashString(name)
		}

		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		h = xxh3.HashSeed(ib[:], h)

		r.nodes = append(r.nodes, virtualNode{hash: h, nameIdx: nameIdx})
	}
}

func (r *Ring) hash(key string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(key, r.seed)
	}

	return xxh3.HashString(key)
}

func (r *Ring) indexForHash(target uint64) int {
	idx, found := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		switch {
		case node.hash < t:
			return -1
		case node.hash > t:
			return 1
		default:
			return 0
		}
	})
	if !found && idx >= len(r.nodes) {
		idx = 0
	}

	return idx
}
