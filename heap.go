package optics

import "math"

// boundedHeap is a flat-array max-heap holding at most k (id, distance)
// pairs, with the largest distance at the root. It is the bounded priority
// queue behind k-NN queries and core-distance computation: insert the first
// k candidates, then replace the root whenever a smaller distance arrives,
// giving O(n log k) selection of the k smallest.
//
// NaN distances are rejected on offer, so a heap fed only NaN candidates
// stays empty ("no result").
type boundedHeap struct {
	ids   []int32
	dists []float64
	size  int
	k     int
}

func newBoundedHeap(k int) *boundedHeap {
	return &boundedHeap{
		ids:   make([]int32, k),
		dists: make([]float64, k),
		k:     k,
	}
}

func (h *boundedHeap) reset() { h.size = 0 }

func (h *boundedHeap) full() bool { return h.size == h.k }

// max returns the largest accepted distance, or +Inf while the heap is not
// yet full (nothing can be pruned until k candidates are held).
func (h *boundedHeap) max() float64 {
	if h.size < h.k {
		return math.Inf(1)
	}
	return h.dists[0]
}

// offer inserts the candidate if it is one of the k smallest seen so far.
func (h *boundedHeap) offer(id int32, d float64) {
	if math.IsNaN(d) {
		return
	}
	if h.size < h.k {
		h.ids[h.size] = id
		h.dists[h.size] = d
		h.size++
		h.siftUp(h.size - 1)
		return
	}
	if d < h.dists[0] {
		h.ids[0] = id
		h.dists[0] = d
		h.siftDown(0)
	}
}

func (h *boundedHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.dists[parent] >= h.dists[i] {
			return
		}
		h.swap(parent, i)
		i = parent
	}
}

func (h *boundedHeap) siftDown(i int) {
	for {
		largest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < h.size && h.dists[left] > h.dists[largest] {
			largest = left
		}
		if right < h.size && h.dists[right] > h.dists[largest] {
			largest = right
		}
		if largest == i {
			return
		}
		h.swap(i, largest)
		i = largest
	}
}

func (h *boundedHeap) swap(i, j int) {
	h.ids[i], h.ids[j] = h.ids[j], h.ids[i]
	h.dists[i], h.dists[j] = h.dists[j], h.dists[i]
}

// drainSorted pops all entries into the provided slices in ascending
// distance order and resets the heap. Returns the number of entries written.
func (h *boundedHeap) drainSorted(ids []int32, dists []float64) int {
	n := h.size
	for h.size > 0 {
		h.size--
		ids[h.size] = h.ids[0]
		dists[h.size] = h.dists[0]
		h.ids[0] = h.ids[h.size]
		h.dists[0] = h.dists[h.size]
		h.siftDown(0)
	}
	return n
}
