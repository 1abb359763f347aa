package optics

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

// knnQuery runs a k-NN search and returns ids and squared distances sorted
// ascending by distance.
func knnQuery(t *kdTree, qx, qy, qz float64, k int) ([]int32, []float64) {
	h := newBoundedHeap(k)
	t.nearestNeighbors(qx, qy, qz, h)
	ids := make([]int32, k)
	dists := make([]float64, k)
	n := h.drainSorted(ids, dists)
	return ids[:n], dists[:n]
}

// bruteKNN computes the same result by scanning all points.
func bruteKNN(x, y, z []float64, qx, qy, qz float64, k int) []float64 {
	var dists []float64
	for i := range x {
		var d2 float64
		if z != nil {
			d2 = distance3Sq(x[i], y[i], z[i], qx, qy, qz)
		} else {
			d2 = distance2Sq(x[i], y[i], qx, qy)
		}
		if !math.IsNaN(d2) {
			dists = append(dists, d2)
		}
	}
	sort.Float64s(dists)
	if len(dists) > k {
		dists = dists[:k]
	}
	return dists
}

func randomPoints(rng *rand.Rand, n int, span float64) ([]float64, []float64) {
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64() * span
		y[i] = rng.Float64() * span
	}
	return x, y
}

func TestKDTree_Construction_BasicProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x, y := randomPoints(rng, 500, 100)
	tree := newKDTree(x, y, nil, 0)

	if tree.count != 500 {
		t.Fatalf("count = %d, want 500", tree.count)
	}

	// Every point appears in exactly one leaf bucket.
	seen := make(map[int32]int)
	for i := range tree.nodes {
		node := &tree.nodes[i]
		if node.left < 0 {
			for _, id := range node.bucket {
				seen[id]++
			}
		} else if node.bucket != nil {
			t.Errorf("internal node %d still holds a bucket", i)
		}
	}
	for i := int32(0); i < 500; i++ {
		if seen[i] != 1 {
			t.Errorf("point %d appears %d times in leaves, want 1", i, seen[i])
		}
	}

	// Parent links are consistent with child links.
	for i := range tree.nodes {
		node := &tree.nodes[i]
		if node.left >= 0 {
			if tree.nodes[node.left].parent != int32(i) {
				t.Errorf("left child of %d has parent %d", i, tree.nodes[node.left].parent)
			}
			if tree.nodes[node.right].parent != int32(i) {
				t.Errorf("right child of %d has parent %d", i, tree.nodes[node.right].parent)
			}
		}
	}
}

func TestKDTree_KNN_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 2, 7, 24, 25, 100, 1000, 5000} {
		x, y := randomPoints(rng, n, 50)
		tree := newKDTree(x, y, nil, 0)

		for q := 0; q < 20; q++ {
			qx := rng.Float64() * 50
			qy := rng.Float64() * 50
			for _, k := range []int{1, 3, 10} {
				_, got := knnQuery(tree, qx, qy, 0, k)
				want := bruteKNN(x, y, nil, qx, qy, 0, k)
				if len(got) != len(want) {
					t.Fatalf("n=%d k=%d: got %d results, want %d", n, k, len(got), len(want))
				}
				for i := range got {
					if got[i] != want[i] {
						t.Errorf("n=%d k=%d result %d: dist² = %v, want %v", n, k, i, got[i], want[i])
					}
				}
			}
		}
	}
}

func TestKDTree_KNN_MatchesBruteForce3D(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 800
	x, y := randomPoints(rng, n, 20)
	z := make([]float64, n)
	for i := range z {
		z[i] = rng.Float64() * 20
	}
	tree := newKDTree(x, y, z, 0)

	for q := 0; q < 20; q++ {
		qx, qy, qz := rng.Float64()*20, rng.Float64()*20, rng.Float64()*20
		_, got := knnQuery(tree, qx, qy, qz, 8)
		want := bruteKNN(x, y, z, qx, qy, qz, 8)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("result %d: dist² = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestKDTree_Range_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x, y := randomPoints(rng, 2000, 10)
	tree := newKDTree(x, y, nil, 0)

	for q := 0; q < 20; q++ {
		qx := rng.Float64() * 10
		qy := rng.Float64() * 10
		r := 0.5 + rng.Float64()

		ids, _ := tree.rangeSearch(qx, qy, 0, r, nil, nil)
		got := make(map[int32]bool, len(ids))
		for _, id := range ids {
			got[id] = true
		}
		if len(got) != len(ids) {
			t.Fatalf("range result contains duplicates")
		}

		for i := range x {
			inRange := distance2Sq(x[i], y[i], qx, qy) <= r*r
			if inRange != got[int32(i)] {
				t.Errorf("point %d: in range = %v, reported = %v", i, inRange, got[int32(i)])
			}
		}
	}
}

func TestKDTree_Nearest(t *testing.T) {
	x := []float64{0, 5, 9}
	y := []float64{0, 5, 9}
	tree := newKDTree(x, y, nil, 0)

	id, d2, ok := tree.nearest(4.4, 4.4, 0)
	if !ok {
		t.Fatal("nearest returned no result")
	}
	if id != 1 {
		t.Errorf("nearest id = %d, want 1", id)
	}
	want := distance2Sq(4.4, 4.4, 5, 5)
	if d2 != want {
		t.Errorf("nearest dist² = %v, want %v", d2, want)
	}
}

func TestKDTree_Empty_NoResult(t *testing.T) {
	tree := newKDTree(nil, nil, nil, 0)
	if _, _, ok := tree.nearest(0, 0, 0); ok {
		t.Error("nearest on empty tree returned a result")
	}
	ids, _ := tree.rangeSearch(0, 0, 0, 1, nil, nil)
	if len(ids) != 0 {
		t.Errorf("range on empty tree returned %d results", len(ids))
	}
}

func TestKDTree_Colocated_CapacityDoubles(t *testing.T) {
	n := 100
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = 5
		y[i] = 5
	}
	tree := newKDTree(x, y, nil, 0)

	// Zero-extent data cannot be split: a single leaf holds everything.
	if len(tree.nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(tree.nodes))
	}
	root := &tree.nodes[0]
	if len(root.bucket) != n {
		t.Errorf("root bucket holds %d points, want %d", len(root.bucket), n)
	}
	if root.capacity <= defaultBucketSize {
		t.Errorf("capacity = %d, want > %d after doubling", root.capacity, defaultBucketSize)
	}

	ids, _ := tree.rangeSearch(5, 5, 0, 0.1, nil, nil)
	if len(ids) != n {
		t.Errorf("range found %d colocated points, want %d", len(ids), n)
	}
}

func TestKDTree_NaN_NeverReported(t *testing.T) {
	x := []float64{0, 1, math.NaN(), 3}
	y := []float64{0, 1, 2, math.NaN()}
	tree := newKDTree(x, y, nil, 0)

	ids, _ := tree.rangeSearch(0.4, 0.4, 0, 100, nil, nil)
	got := make(map[int32]bool)
	for _, id := range ids {
		got[id] = true
	}
	if !got[0] || !got[1] {
		t.Errorf("valid points missing from range result: %v", ids)
	}
	if got[2] || got[3] {
		t.Errorf("NaN points reported as neighbors: %v", ids)
	}
}

func TestKDTree_AllNaN_NoResult(t *testing.T) {
	nan := math.NaN()
	x := []float64{nan, nan}
	y := []float64{nan, nan}
	tree := newKDTree(x, y, nil, 0)

	if _, _, ok := tree.nearest(0, 0, 0); ok {
		t.Error("nearest over all-NaN data returned a result")
	}
}
