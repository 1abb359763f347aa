package optics

import "math"

// FinderVariant selects the neighborhood search structure.
type FinderVariant int

const (
	// FinderAuto picks a variant from the dimensionality and the estimated
	// mean neighbors per query.
	FinderAuto FinderVariant = iota
	// FinderGrid is a uniform grid with cells of the generating distance.
	FinderGrid
	// FinderRadialGrid prunes grid cells that cannot intersect the search
	// radius before checking distances.
	FinderRadialGrid
	// FinderInnerRadialGrid additionally accepts cells guaranteed fully
	// inside the radius without per-point distance checks.
	FinderInnerRadialGrid
	// FinderTree backs neighborhood search with the KD-tree. Always used
	// for 3D data.
	FinderTree
)

// Estimated mean neighbors per query above which the radial variants beat
// the plain grid.
const (
	radialGridThreshold      = 16.0
	innerRadialGridThreshold = 64.0
)

// neighborFinder is the capability set every neighborhood structure
// implements. A finder is built for one generating distance; generate
// constructs the spatial structure once, and reset clears mutable clustering
// state without rebuilding it.
//
// Both find methods fill the finder-owned shared buffer; the slices returned
// by neighbors and distances are valid until the next find call. OPTICS
// requires the distance-recording variant; DBSCAN uses the id-only one.
type neighborFinder interface {
	generate()
	findNeighbours(minPts int, id int32)
	findNeighboursAndDistances(minPts int, id int32)
	neighbors() []int32
	distances() []float64
	reset()
}

// neighborBuffer is the reusable result buffer shared by the finder
// implementations.
type neighborBuffer struct {
	ids   []int32
	dists []float64
}

func (b *neighborBuffer) clear() {
	b.ids = b.ids[:0]
	b.dists = b.dists[:0]
}

func (b *neighborBuffer) add(id int32) {
	b.ids = append(b.ids, id)
}

func (b *neighborBuffer) addWithDistance(id int32, d float64) {
	b.ids = append(b.ids, id)
	b.dists = append(b.dists, d)
}

// chooseVariant resolves FinderAuto. 3D data always uses the tree; 2D data
// starts on the uniform grid and moves to the radial variants as the
// estimated mean neighbors per query (n * pi * E^2 / area) grows.
func (e *Engine) chooseVariant(generatingE float64) FinderVariant {
	if e.dims == 3 {
		return FinderTree
	}
	if e.cfg.Finder != FinderAuto {
		return e.cfg.Finder
	}
	expected := float64(e.n()) * math.Pi * generatingE * generatingE / e.area
	switch {
	case expected >= innerRadialGridThreshold:
		return FinderInnerRadialGrid
	case expected >= radialGridThreshold:
		return FinderRadialGrid
	default:
		return FinderGrid
	}
}

// newFinder builds the finder for a resolved variant and generating
// distance, and generates its spatial structure.
func (e *Engine) newFinder(variant FinderVariant, generatingE float64) neighborFinder {
	var f neighborFinder
	switch variant {
	case FinderTree:
		f = newTreeFinder(e, generatingE)
	case FinderRadialGrid:
		f = newRadialGridFinder(e, generatingE, false)
	case FinderInnerRadialGrid:
		f = newRadialGridFinder(e, generatingE, true)
	default:
		f = newGridFinder(e, generatingE)
	}
	f.generate()
	return f
}

// finderFor returns a finder for the generating distance, reusing the cached
// one when caching is enabled and the parameters match.
func (e *Engine) finderFor(generatingE float64) neighborFinder {
	variant := e.chooseVariant(generatingE)
	if e.cfg.Cache && e.finder != nil && e.finderE == generatingE && e.finderVariant == variant {
		e.finder.reset()
		return e.finder
	}
	f := e.newFinder(variant, generatingE)
	if e.cfg.Cache {
		e.finder = f
		e.finderE = generatingE
		e.finderVariant = variant
	} else {
		e.finder = nil
	}
	return f
}

// resolveGeneratingDistance corrects an invalid or zero generating distance
// rather than failing: zero or non-finite values are auto-derived from an
// assumed-uniform density model, the result is clamped to the bounding
// box's maximum span, and fully colocated data forces a distance of 1.
func (e *Engine) resolveGeneratingDistance(distance float64, minPts int) float64 {
	maxSpan := math.Max(e.spanX, e.spanY)
	if e.dims == 3 {
		maxSpan = math.Max(maxSpan, e.spanZ)
	}
	if maxSpan <= 0 {
		// Colocated (or single-point) data: every distance is equivalent.
		return 1
	}
	if !(distance > 0) || math.IsInf(distance, 0) || math.IsNaN(distance) {
		distance = e.autoGeneratingDistance(minPts)
	}
	return math.Min(distance, maxSpan)
}

// autoGeneratingDistance derives E from an assumed-uniform density: the
// radius at which the expected neighborhood of a point holds minPts points.
func (e *Engine) autoGeneratingDistance(minPts int) float64 {
	n := float64(e.n())
	if e.dims == 3 {
		return math.Cbrt(3 * e.area * float64(minPts) / (4 * math.Pi * n))
	}
	return math.Sqrt(e.area * float64(minPts) / (math.Pi * n))
}
