package optics

import (
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// defaultLambda is the LoOP normalization factor used when an invalid one
// is supplied; 3 corresponds to a three-sigma significance.
const defaultLambda = 3.0

// Loop computes the local outlier probability (LoOP) of every point: a
// score in [0, 1] where values near 1 mark strong outliers. k is the
// neighborhood size (clamped to the available points) and lambda the
// normalization factor. With cache enabled (and Config.Cache), the k-NN
// lists are kept on the engine so a repeat call with the same k skips the
// tree queries.
//
// The computation runs in three stages, each statically partitioned into
// contiguous index ranges across Config.Workers goroutines and separated by
// a hard join: (1) probabilistic set distance per point from its k nearest
// neighbors via the KD-tree, (2) probabilistic local outlier factor plus a
// global squared-deviation sum, (3) erf-based normalization using the
// stage-2 deviation estimate. A worker failure aborts the join, is logged
// through the progress collaborator, and yields a nil result. The stop
// signal is honored between stages, never mid-stage.
func (e *Engine) Loop(k int, lambda float64, cache bool) ([]float64, error) {
	n := e.n()
	if k < 1 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	if !(lambda > 0) || math.IsNaN(lambda) {
		lambda = defaultLambda
	}
	if n == 0 {
		return []float64{}, nil
	}
	if k < 1 {
		// A single point has no neighbors and no outlier evidence.
		return make([]float64, n), nil
	}

	reporter := e.cfg.Progress
	tree := e.sharedTree()
	parts := partitionRange(n, e.cfg.Workers)

	// Stage 1: probabilistic set distance = sqrt(mean squared distance to
	// the k nearest neighbors).
	neighbors := e.loopCache(k, cache)
	pdist := make([]float64, n)
	var g1 errgroup.Group
	for _, part := range parts {
		part := part
		g1.Go(func() error {
			h := newBoundedHeap(k + 1) // +1 covers the query point itself
			ids := make([]int32, k+1)
			distsSq := make([]float64, k+1)
			for i := part.lo; i < part.hi; i++ {
				if neighbors[i] == nil {
					h.reset()
					var qz float64
					if e.dims == 3 {
						qz = e.z[i]
					}
					tree.nearestNeighbors(e.x[i], e.y[i], qz, h)
					m := h.drainSorted(ids, distsSq)
					nbs := make([]int32, 0, k)
					for j := 0; j < m && len(nbs) < k; j++ {
						if int(ids[j]) == i {
							continue
						}
						nbs = append(nbs, ids[j])
					}
					neighbors[i] = nbs
				}
				var sum float64
				cnt := 0
				for _, nb := range neighbors[i] {
					sum += e.pointDistSq(i, int(nb))
					cnt++
				}
				if cnt > 0 {
					pdist[i] = math.Sqrt(sum / float64(cnt))
				}
			}
			return nil
		})
	}
	if err := g1.Wait(); err != nil {
		reporter.Log("optics: loop distance stage failed: %v", err)
		return nil, err
	}
	reporter.Progress(1.0 / 3.0)
	if reporter.Stopped() {
		return nil, ErrCanceled
	}

	// Stage 2: probabilistic local outlier factor, accumulating the global
	// sum of squared deviations. Workers accumulate locally and combine
	// after the join.
	plof := make([]float64, n)
	devSq := make([]float64, len(parts))
	var g2 errgroup.Group
	for pi, part := range parts {
		pi, part := pi, part
		g2.Go(func() error {
			var local float64
			scratch := make([]float64, 0, k)
			for i := part.lo; i < part.hi; i++ {
				scratch = scratch[:0]
				for _, nb := range neighbors[i] {
					scratch = append(scratch, pdist[nb])
				}
				v := 1.0
				if len(scratch) > 0 {
					if mean := stat.Mean(scratch, nil); mean > 0 {
						v = math.Max(1, pdist[i]/mean)
					}
				}
				plof[i] = v
				local += (v - 1) * (v - 1)
			}
			devSq[pi] = local
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		reporter.Log("optics: loop factor stage failed: %v", err)
		return nil, err
	}
	reporter.Progress(2.0 / 3.0)
	if reporter.Stopped() {
		return nil, ErrCanceled
	}

	var totalDevSq float64
	for _, v := range devSq {
		totalDevSq += v
	}
	nplof := lambda * math.Sqrt(totalDevSq/float64(n))
	if nplof <= 0 {
		nplof = 1
	}

	// Stage 3: normalize into [0, 1] with the erf transform.
	scores := make([]float64, n)
	norm := 1 / (nplof * math.Sqrt2)
	var g3 errgroup.Group
	for _, part := range parts {
		part := part
		g3.Go(func() error {
			for i := part.lo; i < part.hi; i++ {
				s := math.Erf((plof[i] - 1) * norm)
				if s < 0 {
					s = 0
				}
				scores[i] = s
			}
			return nil
		})
	}
	if err := g3.Wait(); err != nil {
		reporter.Log("optics: loop normalization stage failed: %v", err)
		return nil, err
	}
	reporter.Progress(1)

	return scores, nil
}

// loopCache returns the per-point neighbor id lists to fill, reusing the
// cached ones when enabled and k matches.
func (e *Engine) loopCache(k int, cache bool) [][]int32 {
	useCache := cache && e.cfg.Cache
	if useCache && e.loopK == k && e.loopNeighbors != nil {
		return e.loopNeighbors
	}
	neighbors := make([][]int32, e.n())
	if useCache {
		e.loopK = k
		e.loopNeighbors = neighbors
	} else {
		e.loopNeighbors = nil
	}
	return neighbors
}
