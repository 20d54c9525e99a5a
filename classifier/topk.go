package classifier

import (
	"container/heap"
	"math"
)

// TopK returns the indices of the k largest values, largest first. Equal
// values are ordered by ascending index and NaN ranks below everything.
// It runs in O(n log k).
func TopK(values []float32, k int) []int {
	if k > len(values) {
		k = len(values)
	}
	if k <= 0 {
		return nil
	}

	h := make(rankHeap, 0, k)
	for i, v := range values {
		e := ranked{index: i, score: score(v)}
		if len(h) < k {
			heap.Push(&h, e)
			continue
		}
		if e.beats(h[0]) {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}

	out := make([]int, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ranked).index
	}
	return out
}

func score(v float32) float64 {
	if math.IsNaN(float64(v)) {
		return math.Inf(-1)
	}
	return float64(v)
}

type ranked struct {
	index int
	score float64
}

func (a ranked) beats(b ranked) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.index < b.index
}

// rankHeap is a min-heap: the root is the weakest entry kept so far.
type rankHeap []ranked

func (h rankHeap) Len() int           { return len(h) }
func (h rankHeap) Less(i, j int) bool { return h[j].beats(h[i]) }
func (h rankHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankHeap) Push(x interface{}) {
	*h = append(*h, x.(ranked))
}

func (h *rankHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
