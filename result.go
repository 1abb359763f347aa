package optics

// OpticsOrderEntry is one point's immutable snapshot in the OPTICS cluster
// order. Entries appear in visitation order, the basis for reachability
// plots and threshold-based cluster extraction.
type OpticsOrderEntry struct {
	// ID is the stable input index of the point.
	ID int

	// Predecessor is the input index of the point this one was reached
	// from, or -1 for points visited directly.
	Predecessor int

	// CoreDistance is the distance to the minPts-th nearest neighbor, or
	// +Inf when the point is not a core point.
	CoreDistance float64

	// Reachability is max(predecessor core distance, distance to
	// predecessor), or +Inf for points never reached through expansion.
	Reachability float64

	// NeighborCount is the neighborhood size found at processing time.
	NeighborCount int
}

// IsCore reports whether the point had at least minPts neighbors.
func (e OpticsOrderEntry) IsCore() bool { return !isUndefined(e.CoreDistance) }

// OpticsResult is the ordered output of an OPTICS or FastOPTICS run.
// It is produced once and never mutated.
type OpticsResult struct {
	// Order is the full visitation sequence, one entry per input point.
	Order []OpticsOrderEntry

	// GeneratingDistance is the neighbor-defining radius actually used,
	// after auto-derivation or correction of an invalid input value. For
	// FastOPTICS, which has no fixed radius, it is the maximum finite
	// reachability observed.
	GeneratingDistance float64

	// MinPts is the clamped minimum neighbor count used.
	MinPts int
}

// MaxReachability returns the largest finite reachability distance in the
// order, or 0 if none exists.
func (r *OpticsResult) MaxReachability() float64 {
	var m float64
	for _, e := range r.Order {
		if !isUndefined(e.Reachability) && e.Reachability > m {
			m = e.Reachability
		}
	}
	return m
}

// ExtractDbscanClustering performs the threshold pass over the saved order:
// a new cluster starts whenever a core point's reachability exceeds the
// distance. The result is equivalent to DBSCAN at that distance for any
// distance up to the generating distance. Returns cluster ids indexed by
// input id; 0 is noise.
func (r *OpticsResult) ExtractDbscanClustering(distance float64) []int {
	labels := make([]int, len(r.Order))
	clusterID := 0
	for _, e := range r.Order {
		if isUndefined(e.Reachability) || e.Reachability > distance {
			if e.IsCore() && e.CoreDistance <= distance {
				clusterID++
				labels[e.ID] = clusterID
			}
			// Otherwise noise (0).
			continue
		}
		labels[e.ID] = clusterID
	}
	return labels
}

// Reachabilities returns the reachability profile in visitation order, the
// series a reachability plot renders. Unreached points report +Inf.
func (r *OpticsResult) Reachabilities() []float64 {
	out := make([]float64, len(r.Order))
	for i, e := range r.Order {
		out[i] = e.Reachability
	}
	return out
}

// DbscanResult is the immutable output of a DBSCAN run.
type DbscanResult struct {
	// Labels holds the final cluster id per input point; 0 is noise.
	// Cluster ids increase monotonically from 1.
	Labels []int

	// NeighborCounts holds the neighborhood size found for each processed
	// point.
	NeighborCounts []int

	// Clusters is the number of clusters found.
	Clusters int

	// GeneratingDistance is the corrected neighbor-defining radius used.
	GeneratingDistance float64

	// MinPts is the clamped minimum neighbor count used.
	MinPts int
}

// ClusterSizes returns the size of each cluster indexed by cluster id;
// index 0 counts noise points.
func (r *DbscanResult) ClusterSizes() []int {
	sizes := make([]int, r.Clusters+1)
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}
