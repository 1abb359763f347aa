package optics

import (
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
)

// SampleMode selects how a final projection subset contributes to its
// members' neighborhoods.
type SampleMode int

const (
	// SampleModeAll makes every pair of co-members neighbors.
	SampleModeAll SampleMode = iota
	// SampleModeRandom links every member to one randomly sampled member.
	SampleModeRandom
	// SampleModeMedian links every member to the member at the median
	// projection value.
	SampleModeMedian
)

// logProjectionConst scales the default projection and split counts with
// log2 of the problem size.
const logProjectionConst = 20

// projectedFinder derives neighborhoods from repeated random linear
// projections instead of a fixed radius: each split round recursively
// partitions a projection's sorted order into subsets below a size
// threshold, and a point's neighborhood is its co-membership across all
// rounds. The mean distance to that neighborhood doubles as the FastOPTICS
// core distance.
//
// Projection and split computation fan out across a bounded worker group,
// statically partitioned by index range, with a hard join per stage; the
// first worker error aborts the join.
type projectedFinder struct {
	eng *Engine

	minSplitSize     int
	numProjections   int
	numSplits        int
	useRandomVectors bool
	sampleMode       SampleMode
	workers          int
	seed             int64

	neighborSets [][]int32
	avgDist      []float64

	buf neighborBuffer
}

func newProjectedFinder(eng *Engine, minPts, splits, projections int, useRandomVectors bool, sampleMode SampleMode) *projectedFinder {
	return &projectedFinder{
		eng:              eng,
		minSplitSize:     maxInt(minPts, 1),
		numSplits:        splits,
		numProjections:   projections,
		useRandomVectors: useRandomVectors,
		sampleMode:       sampleMode,
		workers:          eng.cfg.Workers,
		seed:             eng.cfg.RandomSeed,
	}
}

// finalSet is one leaf of a split round: the member ids in projection order
// and the representative chosen by the sample mode (-1 for SampleModeAll).
type finalSet struct {
	members []int32
	rep     int32
}

// build computes projections and split rounds and aggregates the
// neighborhood sets. It must run before the finder is queried.
func (f *projectedFinder) build() error {
	n := f.eng.n()
	dims := f.eng.dims

	if f.numProjections <= 0 {
		f.numProjections = defaultProjectionCount(n, dims)
	}
	if f.numSplits <= 0 {
		f.numSplits = defaultProjectionCount(n, dims)
	}

	// Stage 1: project all points onto random unit vectors and sort each
	// projection's order, one contiguous range of projections per worker.
	orders := make([][]int32, f.numProjections)
	var g errgroup.Group
	for _, part := range partitionRange(f.numProjections, f.workers) {
		part := part
		g.Go(func() error {
			proj := make([]float64, n)
			for p := part.lo; p < part.hi; p++ {
				// Seeded per projection index, not per partition, so the
				// vectors do not depend on the worker count.
				rng := rand.New(rand.NewSource(f.seed + int64(p)))
				f.projectPoints(p, rng, proj)
				order := make([]int32, n)
				for i := range order {
					order[i] = int32(i)
				}
				sort.Slice(order, func(a, b int) bool {
					return proj[order[a]] < proj[order[b]]
				})
				orders[p] = order
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Stage 2: split rounds. Each round picks a projection order and
	// recursively splits it into final sets; rounds are again partitioned
	// by contiguous range.
	roundSets := make([][]finalSet, f.numSplits)
	var g2 errgroup.Group
	for _, part := range partitionRange(f.numSplits, f.workers) {
		part := part
		g2.Go(func() error {
			for r := part.lo; r < part.hi; r++ {
				rng := rand.New(rand.NewSource(f.seed + 7919*int64(r+1)))
				order := orders[rng.Intn(len(orders))]
				scratch := make([]int32, n)
				copy(scratch, order)
				roundSets[r] = f.splitRound(scratch, rng)
			}
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return err
	}

	f.aggregate(n, roundSets)
	return nil
}

// projectPoints fills proj with the dot product of every point and the p-th
// projection vector. Without random vectors, projections cycle through the
// coordinate axes.
func (f *projectedFinder) projectPoints(p int, rng *rand.Rand, proj []float64) {
	eng := f.eng
	var vx, vy, vz float64
	if f.useRandomVectors {
		vx = rng.NormFloat64()
		vy = rng.NormFloat64()
		if eng.dims == 3 {
			vz = rng.NormFloat64()
		}
		norm := math.Sqrt(vx*vx + vy*vy + vz*vz)
		if norm == 0 {
			vx, norm = 1, 1
		}
		vx /= norm
		vy /= norm
		vz /= norm
	} else {
		switch p % eng.dims {
		case 0:
			vx = 1
		case 1:
			vy = 1
		default:
			vz = 1
		}
	}

	for i := range proj {
		v := vx*eng.x[i] + vy*eng.y[i]
		if eng.dims == 3 {
			v += vz * eng.z[i]
		}
		proj[i] = v
	}
}

// splitRound recursively partitions order into final sets no larger than
// twice the minimum split size, choosing each split point uniformly at
// random within the legal middle range.
func (f *projectedFinder) splitRound(order []int32, rng *rand.Rand) []finalSet {
	var sets []finalSet
	var rec func(lo, hi int)
	rec = func(lo, hi int) {
		size := hi - lo
		if size <= 0 {
			return
		}
		if size < 2*f.minSplitSize {
			sets = append(sets, f.finish(order[lo:hi], rng))
			return
		}
		pos := lo + f.minSplitSize + rng.Intn(size-2*f.minSplitSize+1)
		rec(lo, pos)
		rec(pos, hi)
	}
	rec(0, len(order))
	return sets
}

// finish picks the set's representative according to the sample mode.
func (f *projectedFinder) finish(members []int32, rng *rand.Rand) finalSet {
	set := finalSet{members: members, rep: -1}
	switch f.sampleMode {
	case SampleModeRandom:
		set.rep = members[rng.Intn(len(members))]
	case SampleModeMedian:
		// Members arrive sorted by projection value.
		set.rep = members[len(members)/2]
	}
	return set
}

// aggregate unions co-membership into per-point neighbor sets and computes
// the mean distance to each neighborhood.
func (f *projectedFinder) aggregate(n int, roundSets [][]finalSet) {
	raw := make([][]int32, n)
	sumDist := make([]float64, n)
	cnt := make([]int, n)

	link := func(a, b int32) {
		raw[a] = append(raw[a], b)
		d := f.eng.pointDist(int(a), int(b))
		sumDist[a] += d
		cnt[a]++
	}

	for _, sets := range roundSets {
		for _, set := range sets {
			if f.sampleMode == SampleModeAll {
				for _, a := range set.members {
					for _, b := range set.members {
						if a != b {
							link(a, b)
						}
					}
				}
				continue
			}
			for _, a := range set.members {
				if a == set.rep {
					continue
				}
				link(a, set.rep)
				link(set.rep, a)
			}
		}
	}

	f.neighborSets = make([][]int32, n)
	f.avgDist = make([]float64, n)
	for i := 0; i < n; i++ {
		f.neighborSets[i] = dedupe(raw[i])
		if cnt[i] > 0 {
			f.avgDist[i] = sumDist[i] / float64(cnt[i])
		} else {
			f.avgDist[i] = undefinedDistance()
		}
	}
}

func dedupe(ids []int32) []int32 {
	if len(ids) < 2 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, v := range ids[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func defaultProjectionCount(n, dims int) int {
	c := int(logProjectionConst * math.Log2(float64(n*dims+1)))
	if c < 1 {
		c = 1
	}
	return c
}

// --- neighborFinder ---

func (f *projectedFinder) generate() {}

func (f *projectedFinder) neighbors() []int32   { return f.buf.ids }
func (f *projectedFinder) distances() []float64 { return f.buf.dists }

func (f *projectedFinder) reset() { f.buf.clear() }

func (f *projectedFinder) findNeighbours(minPts int, id int32) {
	f.buf.clear()
	f.buf.ids = append(f.buf.ids, f.neighborSets[id]...)
}

func (f *projectedFinder) findNeighboursAndDistances(minPts int, id int32) {
	f.buf.clear()
	for _, nb := range f.neighborSets[id] {
		f.buf.addWithDistance(nb, f.eng.pointDist(int(id), int(nb)))
	}
}
