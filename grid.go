package optics

import "math"

// maxGridCells caps grid allocation; the bin width is widened until the
// cell count fits.
const maxGridCells = 1 << 20

// gridFinder is the default 2D neighborhood structure: a uniform grid with
// cells the size of the generating distance, so a neighborhood query scans
// at most the 3x3 block around the query cell.
type gridFinder struct {
	eng *Engine

	generatingE float64
	e2          float64

	binWidth     float64
	xBins, yBins int
	cells        [][]int32

	buf neighborBuffer
}

func newGridFinder(eng *Engine, generatingE float64) *gridFinder {
	return &gridFinder{
		eng:         eng,
		generatingE: generatingE,
		e2:          generatingE * generatingE,
	}
}

func (g *gridFinder) generate() {
	g.binWidth, g.xBins, g.yBins = gridDimensions(g.eng.spanX, g.eng.spanY, g.generatingE)
	g.cells = make([][]int32, g.xBins*g.yBins)
	for i := range g.eng.x {
		// NaN coordinates can never satisfy a radius check; keep them out
		// of the grid entirely.
		if math.IsNaN(g.eng.x[i]) || math.IsNaN(g.eng.y[i]) {
			continue
		}
		cell := gridCell(g.eng.x[i], g.eng.y[i], g.binWidth, g.xBins, g.yBins)
		g.cells[cell] = append(g.cells[cell], int32(i))
	}
}

func (g *gridFinder) neighbors() []int32   { return g.buf.ids }
func (g *gridFinder) distances() []float64 { return g.buf.dists }

func (g *gridFinder) reset() { g.buf.clear() }

func (g *gridFinder) findNeighbours(minPts int, id int32) {
	g.find(id, false)
}

func (g *gridFinder) findNeighboursAndDistances(minPts int, id int32) {
	g.find(id, true)
}

func (g *gridFinder) find(id int32, withDistances bool) {
	g.buf.clear()
	qx := g.eng.x[id]
	qy := g.eng.y[id]
	if math.IsNaN(qx) || math.IsNaN(qy) {
		return
	}
	cx, cy := gridCellXY(qx, qy, g.binWidth, g.xBins, g.yBins)

	for dy := -1; dy <= 1; dy++ {
		yb := cy + dy
		if yb < 0 || yb >= g.yBins {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			xb := cx + dx
			if xb < 0 || xb >= g.xBins {
				continue
			}
			for _, nb := range g.cells[yb*g.xBins+xb] {
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

// gridDimensions picks a bin width for a grid covering spanX x spanY,
// starting from the requested width and doubling until the cell count is
// bounded. The cap check runs in float64 first: a tiny width over a wide
// span yields quotients beyond the int range, so converting early would
// produce garbage bin counts.
func gridDimensions(spanX, spanY, width float64) (binWidth float64, xBins, yBins int) {
	binWidth = width
	if !(binWidth > 0) {
		binWidth = 1
	}
	for (spanX/binWidth+1)*(spanY/binWidth+1) > maxGridCells {
		binWidth *= 2
	}
	return binWidth, int(spanX/binWidth) + 1, int(spanY/binWidth) + 1
}

// gridCellXY maps a coordinate to clamped cell indices. NaN coordinates
// clamp to cell zero; their distances never satisfy a radius check, so they
// are simply never reported as neighbors.
func gridCellXY(x, y, binWidth float64, xBins, yBins int) (int, int) {
	return clampBin(x/binWidth, xBins), clampBin(y/binWidth, yBins)
}

func gridCell(x, y, binWidth float64, xBins, yBins int) int {
	cx, cy := gridCellXY(x, y, binWidth, xBins, yBins)
	return cy*xBins + cx
}

func clampBin(v float64, bins int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	b := int(v)
	if b >= bins {
		return bins - 1
	}
	return b
}
