package retrieval

import (
	"sort"

	"github.com/bowerhall/notebook/internal/vector"
)

// Rerank merges search passes. Chunks are deduplicated by their canonical key
// and ordered by how many passes returned them, ties broken by first
// appearance. At most k chunks are kept.
func Rerank(k int, lists ...[]vector.Chunk) []vector.Chunk {
	type ranked struct {
		chunk      vector.Chunk
		count      int
		firstIndex int
	}

	byKey := make(map[string]*ranked)
	var order []*ranked

	index := 0
	for _, list := range lists {
		for _, c := range list {
			key := c.Key()
			if r, ok := byKey[key]; ok {
				r.count++
			} else {
				r := &ranked{chunk: c, count: 1, firstIndex: index}
				byKey[key] = r
				order = append(order, r)
			}
			index++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].firstIndex < order[j].firstIndex
	})

	if k < 0 {
		k = 0
	}
	if len(order) > k {
		order = order[:k]
	}

	out := make([]vector.Chunk, 0, len(order))
	for _, r := range order {
		out = append(out, r.chunk)
	}
	return out
}
