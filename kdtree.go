package optics

import "math"

// defaultBucketSize is the number of points a KD-tree leaf holds before it
// splits.
const defaultBucketSize = 24

// kdTree is a bucketed KD-tree over the engine's coordinate arrays, tuned
// for 2D/3D. Nodes live in an arena and address each other by index, giving
// O(depth) parent ascent without pointer cycles.
//
// Insertion descends in O(depth), eagerly extending node bounding boxes. A
// full leaf splits along the dimension of greatest extent at the midpoint of
// that dimension's range; if a split would leave every point on one side
// (colocated or NaN data), the leaf's bucket capacity doubles instead.
//
// Searches are iterative best-first traversals driven by a fixed-size stack
// of 2-bit branch codes sized to the tree depth, never the call stack, so
// search memory is bounded by depth and traversal is resumable. A subtree is
// pruned when the minimum possible squared distance from the query to its
// bounding box exceeds the current worst accepted distance.
//
// Read-only searches are safe for concurrent callers provided no insertion
// runs concurrently.
type kdTree struct {
	x, y, z []float64 // borrowed from the engine; z nil for 2D
	dims    int

	bucketSize int
	nodes      []kdNode
	count      int
	maxDepth   int
}

type kdNode struct {
	parent, left, right int32 // -1 = none; left < 0 means leaf

	splitDim  int
	splitVal  float64
	boundsMin [3]float64
	boundsMax [3]float64

	bucket   []int32 // leaf only
	capacity int
}

// Traversal branch codes, 2 bits per depth level.
const (
	statusNone         uint8 = 0
	statusLeftVisited  uint8 = 1
	statusRightVisited uint8 = 2
	statusAllVisited   uint8 = 3
)

// newKDTree builds a tree over the given coordinate arrays, inserting every
// point. z may be nil for 2D data. bucketSize <= 0 selects the default.
func newKDTree(x, y, z []float64, bucketSize int) *kdTree {
	if bucketSize <= 0 {
		bucketSize = defaultBucketSize
	}
	t := &kdTree{
		x:          x,
		y:          y,
		z:          z,
		dims:       2,
		bucketSize: bucketSize,
	}
	if z != nil {
		t.dims = 3
	}
	for i := range x {
		t.insert(int32(i))
	}
	return t
}

func (t *kdTree) coord(id int32, dim int) float64 {
	switch dim {
	case 0:
		return t.x[id]
	case 1:
		return t.y[id]
	default:
		return t.z[id]
	}
}

func (t *kdTree) pointDistSq(id int32, qx, qy, qz float64) float64 {
	if t.dims == 3 {
		return distance3Sq(t.x[id], t.y[id], t.z[id], qx, qy, qz)
	}
	return distance2Sq(t.x[id], t.y[id], qx, qy)
}

// insert adds point id, descending from the root and extending bounding
// boxes along the way.
func (t *kdTree) insert(id int32) {
	if len(t.nodes) == 0 {
		root := t.newLeaf(-1)
		t.extendBounds(root, id)
		t.nodes[root].bucket = append(t.nodes[root].bucket, id)
		t.count++
		return
	}

	cur := int32(0)
	depth := 0
	for {
		t.extendBounds(cur, id)
		node := &t.nodes[cur]
		if node.left < 0 {
			node.bucket = append(node.bucket, id)
			t.count++
			if len(node.bucket) > node.capacity {
				t.splitLeaf(cur, depth)
			}
			return
		}
		// NaN coordinates compare false and descend left.
		if t.coord(id, node.splitDim) > node.splitVal {
			cur = node.right
		} else {
			cur = node.left
		}
		depth++
	}
}

func (t *kdTree) newLeaf(parent int32) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, kdNode{
		parent:    parent,
		left:      -1,
		right:     -1,
		capacity:  t.bucketSize,
		bucket:    make([]int32, 0, t.bucketSize),
		boundsMin: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		boundsMax: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	})
	return idx
}

// extendBounds grows the node's bounding box to cover point id. NaN
// coordinates fail both comparisons and leave the box untouched.
func (t *kdTree) extendBounds(nodeIdx, id int32) {
	node := &t.nodes[nodeIdx]
	for d := 0; d < t.dims; d++ {
		v := t.coord(id, d)
		if v < node.boundsMin[d] {
			node.boundsMin[d] = v
		}
		if v > node.boundsMax[d] {
			node.boundsMax[d] = v
		}
	}
}

// splitLeaf converts a full leaf into an internal node with two leaf
// children, splitting at the midpoint of the dimension of greatest extent.
// Degenerate data that cannot be partitioned doubles the bucket capacity
// instead.
func (t *kdTree) splitLeaf(nodeIdx int32, depth int) {
	node := &t.nodes[nodeIdx]

	splitDim := 0
	maxExtent := math.Inf(-1)
	for d := 0; d < t.dims; d++ {
		extent := node.boundsMax[d] - node.boundsMin[d]
		if extent > maxExtent {
			maxExtent = extent
			splitDim = d
		}
	}
	if maxExtent <= 0 || math.IsInf(maxExtent, 1) || math.IsNaN(maxExtent) {
		node.capacity *= 2
		return
	}

	splitVal := 0.5 * (node.boundsMin[splitDim] + node.boundsMax[splitDim])

	var leftPts, rightPts []int32
	for _, id := range node.bucket {
		if t.coord(id, splitDim) > splitVal {
			rightPts = append(rightPts, id)
		} else {
			leftPts = append(leftPts, id)
		}
	}
	if len(leftPts) == 0 || len(rightPts) == 0 {
		node.capacity *= 2
		return
	}

	left := t.newLeaf(nodeIdx)
	right := t.newLeaf(nodeIdx)
	// newLeaf may have reallocated the arena.
	node = &t.nodes[nodeIdx]

	for _, id := range leftPts {
		t.extendBounds(left, id)
	}
	t.nodes[left].bucket = append(t.nodes[left].bucket, leftPts...)
	for _, id := range rightPts {
		t.extendBounds(right, id)
	}
	t.nodes[right].bucket = append(t.nodes[right].bucket, rightPts...)

	node.left = left
	node.right = right
	node.splitDim = splitDim
	node.splitVal = splitVal
	node.bucket = nil

	if depth+1 > t.maxDepth {
		t.maxDepth = depth + 1
	}
}

// minDistSqToNode returns the minimum possible squared distance from the
// query point to the node's bounding box. A box never extended (all-NaN
// points) reports +Inf and is pruned.
func (t *kdTree) minDistSqToNode(nodeIdx int32, qx, qy, qz float64) float64 {
	node := &t.nodes[nodeIdx]
	q := [3]float64{qx, qy, qz}
	var sum float64
	for d := 0; d < t.dims; d++ {
		var gap float64
		if q[d] < node.boundsMin[d] {
			gap = node.boundsMin[d] - q[d]
		} else if q[d] > node.boundsMax[d] {
			gap = q[d] - node.boundsMax[d]
		}
		sum += gap * gap
	}
	return sum
}

// newTraversalStack sizes the branch-code stack to the current tree depth.
// Traversal keeps one 2-bit code per level; the node itself is recovered by
// ascending parent links, so no node path is stored.
func (t *kdTree) newTraversalStack() []uint8 {
	return make([]uint8, t.maxDepth+2)
}

// nearestNeighbors offers the squared distance of every candidate within
// reach of the bounded heap, leaving the k nearest points (by squared
// distance) in h. The caller drains the heap.
func (t *kdTree) nearestNeighbors(qx, qy, qz float64, h *boundedHeap) {
	if t.count == 0 {
		return
	}
	status := t.newTraversalStack()
	cur := int32(0)
	depth := 0
	status[0] = statusNone

	for cur >= 0 {
		node := &t.nodes[cur]

		if node.left < 0 {
			for _, id := range node.bucket {
				h.offer(id, t.pointDistSq(id, qx, qy, qz))
			}
			cur = node.parent
			depth--
			continue
		}

		switch status[depth] {
		case statusAllVisited:
			cur = node.parent
			depth--
		case statusNone:
			if qCoord(qx, qy, qz, node.splitDim) > node.splitVal {
				cur = node.right
				status[depth] = statusRightVisited
			} else {
				cur = node.left
				status[depth] = statusLeftVisited
			}
			depth++
			status[depth] = statusNone
		default:
			var far int32
			if status[depth] == statusLeftVisited {
				far = node.right
			} else {
				far = node.left
			}
			status[depth] = statusAllVisited
			if t.minDistSqToNode(far, qx, qy, qz) > h.max() {
				continue
			}
			cur = far
			depth++
			status[depth] = statusNone
		}
	}
}

// rangeSearch appends the ids and squared distances of every point within
// radius r of the query to the provided slices and returns them.
func (t *kdTree) rangeSearch(qx, qy, qz, r float64, ids []int32, distsSq []float64) ([]int32, []float64) {
	if t.count == 0 {
		return ids, distsSq
	}
	r2 := r * r
	status := t.newTraversalStack()
	cur := int32(0)
	depth := 0
	status[0] = statusNone

	for cur >= 0 {
		node := &t.nodes[cur]

		if node.left < 0 {
			for _, id := range node.bucket {
				d2 := t.pointDistSq(id, qx, qy, qz)
				if d2 <= r2 {
					ids = append(ids, id)
					distsSq = append(distsSq, d2)
				}
			}
			cur = node.parent
			depth--
			continue
		}

		switch status[depth] {
		case statusAllVisited:
			cur = node.parent
			depth--
		case statusNone:
			if qCoord(qx, qy, qz, node.splitDim) > node.splitVal {
				cur = node.right
				status[depth] = statusRightVisited
			} else {
				cur = node.left
				status[depth] = statusLeftVisited
			}
			depth++
			status[depth] = statusNone
		default:
			var far int32
			if status[depth] == statusLeftVisited {
				far = node.right
			} else {
				far = node.left
			}
			status[depth] = statusAllVisited
			if t.minDistSqToNode(far, qx, qy, qz) > r2 {
				continue
			}
			cur = far
			depth++
			status[depth] = statusNone
		}
	}
	return ids, distsSq
}

// nearest finds the single nearest point to the query using a running
// minimum instead of a heap. ok is false when the tree is empty or every
// candidate distance is NaN.
func (t *kdTree) nearest(qx, qy, qz float64) (id int32, distSq float64, ok bool) {
	if t.count == 0 {
		return 0, 0, false
	}
	best := math.Inf(1)
	bestID := int32(-1)

	status := t.newTraversalStack()
	cur := int32(0)
	depth := 0
	status[0] = statusNone

	for cur >= 0 {
		node := &t.nodes[cur]

		if node.left < 0 {
			for _, pid := range node.bucket {
				d2 := t.pointDistSq(pid, qx, qy, qz)
				if d2 < best {
					best = d2
					bestID = pid
				}
			}
			cur = node.parent
			depth--
			continue
		}

		switch status[depth] {
		case statusAllVisited:
			cur = node.parent
			depth--
		case statusNone:
			if qCoord(qx, qy, qz, node.splitDim) > node.splitVal {
				cur = node.right
				status[depth] = statusRightVisited
			} else {
				cur = node.left
				status[depth] = statusLeftVisited
			}
			depth++
			status[depth] = statusNone
		default:
			var far int32
			if status[depth] == statusLeftVisited {
				far = node.right
			} else {
				far = node.left
			}
			status[depth] = statusAllVisited
			if t.minDistSqToNode(far, qx, qy, qz) > best {
				continue
			}
			cur = far
			depth++
			status[depth] = statusNone
		}
	}

	if bestID < 0 {
		return 0, 0, false
	}
	return bestID, best, true
}

func qCoord(qx, qy, qz float64, dim int) float64 {
	switch dim {
	case 0:
		return qx
	case 1:
		return qy
	default:
		return qz
	}
}
