package optics

import "math"

// Distances are computed in squared (reduced) space wherever a comparison is
// all that is needed; the sqrt happens once at the boundary. This mirrors the
// reduced-distance trick used for tree pruning.

func distance2Sq(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}

func distance3Sq(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	dz := z1 - z2
	return dx*dx + dy*dy + dz*dz
}

// pointDistSq returns the squared distance between points i and j of the
// engine's coordinate arrays.
func (e *Engine) pointDistSq(i, j int) float64 {
	if e.dims == 3 {
		return distance3Sq(e.x[i], e.y[i], e.z[i], e.x[j], e.y[j], e.z[j])
	}
	return distance2Sq(e.x[i], e.y[i], e.x[j], e.y[j])
}

// pointDist returns the true distance between points i and j.
func (e *Engine) pointDist(i, j int) float64 {
	return math.Sqrt(e.pointDistSq(i, j))
}
