package assist

import (
	"container/heap"
	"sort"
)

// Result is one scored search hit.
type Result struct {
	Label string
	ID    string
	Score int
}

// topKHeap is a min-heap over Result.Score, giving O(log limit) eviction
// of the worst-scoring entry once the heap exceeds its capacity — the Go
// equivalent of the reference client's heapq-based top-K accumulation.
type topKHeap []Result

func (h topKHeap) Len() int            { return len(h) }
func (h topKHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h topKHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *topKHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopKCollector accumulates scored results, keeping only the best `limit`
// and tracking the current worst-score cutoff so callers can skip
// obviously-too-low scores before even pushing.
type TopKCollector struct {
	h           topKHeap
	limit       int
	scoreCutoff int
}

// NewTopKCollector returns a collector that keeps at most limit results,
// discarding any with a score below scoreCutoff.
func NewTopKCollector(limit, scoreCutoff int) *TopKCollector {
	return &TopKCollector{limit: limit, scoreCutoff: scoreCutoff}
}

// WorstScore returns the current admission threshold: scores below this
// are guaranteed to be dropped.
func (c *TopKCollector) WorstScore() int { return c.scoreCutoff }

// Offer adds a candidate result if it clears the current cutoff,
// evicting the current worst entry once the collector is over capacity.
func (c *TopKCollector) Offer(label, id string, score int) {
	if score < c.scoreCutoff {
		return
	}
	heap.Push(&c.h, Result{Label: label, ID: id, Score: score})
	if len(c.h) > c.limit {
		heap.Pop(&c.h)
		if len(c.h) > 0 {
			c.scoreCutoff = c.h[0].Score
		}
	}
}

// Results returns the collected results sorted best-first.
func (c *TopKCollector) Results() []Result {
	out := make([]Result, len(c.h))
	copy(out, c.h)
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
