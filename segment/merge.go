package segment

import (
	"slices"

	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/internal/queue"
)

// MergeTopK merges per-segment result lists into a global top-k, ascending
// by distance. Equivalent to concatenating and re-sorting, but keeps only k
// entries in flight when the combined list is larger.
func MergeTopK(results []index.SearchResult, k int) []index.SearchResult {
	if len(results) == 0 || k <= 0 {
		return nil
	}

	if len(results) <= k {
		sortResults(results)
		return results
	}

	pq := queue.NewMax(k)
	for _, r := range results {
		if pq.Len() < k {
			pq.Push(queue.Item{Node: r.ID, Distance: r.Distance})
		} else if top, _ := pq.Top(); r.Distance < top.Distance {
			pq.Pop()
			pq.Push(queue.Item{Node: r.ID, Distance: r.Distance})
		}
	}

	merged := make([]index.SearchResult, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		item, _ := pq.Pop()
		merged[i] = index.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return merged
}

func sortResults(results []index.SearchResult) {
	slices.SortFunc(results, func(a, b index.SearchResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
}
