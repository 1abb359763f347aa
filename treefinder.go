package optics

import "math"

// treeFinder backs neighborhood search with the KD-tree's range query.
// Always used for 3D data, where grid memory grows cubically; also
// selectable for 2D via Config.Finder.
type treeFinder struct {
	eng *Engine

	generatingE float64
	tree        *kdTree

	buf     neighborBuffer
	scratch []float64 // squared distances from the range query
}

func newTreeFinder(eng *Engine, generatingE float64) *treeFinder {
	return &treeFinder{eng: eng, generatingE: generatingE}
}

func (f *treeFinder) generate() {
	f.tree = f.eng.sharedTree()
}

func (f *treeFinder) neighbors() []int32   { return f.buf.ids }
func (f *treeFinder) distances() []float64 { return f.buf.dists }

func (f *treeFinder) reset() { f.buf.clear() }

func (f *treeFinder) findNeighbours(minPts int, id int32) {
	f.find(id, false)
}

func (f *treeFinder) findNeighboursAndDistances(minPts int, id int32) {
	f.find(id, true)
}

func (f *treeFinder) find(id int32, withDistances bool) {
	f.buf.clear()
	f.scratch = f.scratch[:0]

	var qz float64
	if f.eng.dims == 3 {
		qz = f.eng.z[id]
	}
	f.buf.ids, f.scratch = f.tree.rangeSearch(
		f.eng.x[id], f.eng.y[id], qz, f.generatingE, f.buf.ids, f.scratch)

	if withDistances {
		for _, d2 := range f.scratch {
			f.buf.dists = append(f.buf.dists, math.Sqrt(d2))
		}
	}
}
