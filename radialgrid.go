package optics

import "math"

// radialGridFinder refines the uniform grid with cells smaller than the
// generating distance and a precomputed offset table: for each row of cell
// offsets it stores the widest column offset whose cell can still intersect
// the search radius, so whole cells outside the radius are skipped without
// distance checks.
//
// With inner enabled it also stores, per row, the widest column offset whose
// cell is guaranteed to lie entirely inside the radius no matter where the
// query sits in its own cell; points in those cells are accepted without an
// explicit distance check.
type radialGridFinder struct {
	eng   *Engine
	inner bool

	generatingE float64
	e2          float64

	resolution   int
	binWidth     float64
	xBins, yBins int
	cells        [][]int32

	maxOffset int
	outerDx   []int // per dy+maxOffset: max |dx| that may intersect
	innerDx   []int // per dy+maxOffset: max |dx| fully inside, -1 = none

	buf neighborBuffer
}

func newRadialGridFinder(eng *Engine, generatingE float64, inner bool) *radialGridFinder {
	return &radialGridFinder{
		eng:         eng,
		inner:       inner,
		generatingE: generatingE,
		e2:          generatingE * generatingE,
	}
}

func (g *radialGridFinder) generate() {
	expected := float64(g.eng.n()) * math.Pi * g.e2 / g.eng.area
	g.resolution = radialResolution(expected)

	g.binWidth, g.xBins, g.yBins = gridDimensions(g.eng.spanX, g.eng.spanY, g.generatingE/float64(g.resolution))
	// The cap in gridDimensions may have widened the bins; recompute the
	// effective resolution so the offset table stays consistent.
	g.resolution = int(math.Ceil(g.generatingE / g.binWidth))
	if g.resolution < 1 {
		g.resolution = 1
	}

	g.cells = make([][]int32, g.xBins*g.yBins)
	for i := range g.eng.x {
		if math.IsNaN(g.eng.x[i]) || math.IsNaN(g.eng.y[i]) {
			continue
		}
		cell := gridCell(g.eng.x[i], g.eng.y[i], g.binWidth, g.xBins, g.yBins)
		g.cells[cell] = append(g.cells[cell], int32(i))
	}

	g.buildOffsets()
}

// buildOffsets precomputes, per row offset dy, the widest |dx| whose cell
// can intersect the radius (outer) and the widest |dx| whose cell is always
// fully inside it (inner). Bounds account for the query sitting anywhere in
// its own cell: the nearest point of cell (dx,dy) is (|d|-1) bins away and
// the farthest (|d|+1) bins.
func (g *radialGridFinder) buildOffsets() {
	g.maxOffset = g.resolution + 1
	rows := 2*g.maxOffset + 1
	g.outerDx = make([]int, rows)
	g.innerDx = make([]int, rows)
	bw := g.binWidth

	for dy := -g.maxOffset; dy <= g.maxOffset; dy++ {
		minY := bw * float64(maxInt(absInt(dy)-1, 0))
		maxY := bw * float64(absInt(dy)+1)

		outer := -1
		inner := -1
		for dx := 0; dx <= g.maxOffset; dx++ {
			minX := bw * float64(maxInt(dx-1, 0))
			if minX*minX+minY*minY <= g.e2 {
				outer = dx
			}
			maxX := bw * float64(dx+1)
			if maxX*maxX+maxY*maxY <= g.e2 {
				inner = dx
			}
		}
		g.outerDx[dy+g.maxOffset] = outer
		g.innerDx[dy+g.maxOffset] = inner
	}
}

func (g *radialGridFinder) neighbors() []int32   { return g.buf.ids }
func (g *radialGridFinder) distances() []float64 { return g.buf.dists }

func (g *radialGridFinder) reset() { g.buf.clear() }

func (g *radialGridFinder) findNeighbours(minPts int, id int32) {
	g.find(id, false)
}

func (g *radialGridFinder) findNeighboursAndDistances(minPts int, id int32) {
	g.find(id, true)
}

func (g *radialGridFinder) find(id int32, withDistances bool) {
	g.buf.clear()
	qx := g.eng.x[id]
	qy := g.eng.y[id]
	if math.IsNaN(qx) || math.IsNaN(qy) {
		return
	}
	cx, cy := gridCellXY(qx, qy, g.binWidth, g.xBins, g.yBins)

	for dy := -g.maxOffset; dy <= g.maxOffset; dy++ {
		yb := cy + dy
		if yb < 0 || yb >= g.yBins {
			continue
		}
		outer := g.outerDx[dy+g.maxOffset]
		if outer < 0 {
			continue
		}
		inner := -1
		if g.inner {
			inner = g.innerDx[dy+g.maxOffset]
		}
		row := yb * g.xBins

		for dx := -outer; dx <= outer; dx++ {
			xb := cx + dx
			if xb < 0 || xb >= g.xBins {
				continue
			}
			cell := g.cells[row+xb]
			if absInt(dx) <= inner {
				// Fully inside the radius: no distance check needed.
				for _, nb := range cell {
					if withDistances {
						g.buf.addWithDistance(nb, g.eng.pointDist(int(id), int(nb)))
					} else {
						g.buf.add(nb)
					}
				}
				continue
			}
			for _, nb := range cell {
				d2 := distance2Sq(qx, qy, g.eng.x[nb], g.eng.y[nb])
				if d2 <= g.e2 {
					if withDistances {
						g.buf.addWithDistance(nb, math.Sqrt(d2))
					} else {
						g.buf.add(nb)
					}
				}
			}
		}
	}
}

// radialResolution picks how many bins the generating distance is divided
// into: denser neighborhoods justify finer cells.
func radialResolution(expectedNeighbors float64) int {
	r := int(math.Round(math.Sqrt(expectedNeighbors) / 2))
	if r < 2 {
		r = 2
	}
	if r > 8 {
		r = 8
	}
	return r
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
