package optics

// workerRange is one contiguous half-open index range assigned to a worker.
type workerRange struct {
	lo, hi int
}

// partitionRange splits [0, n) into up to `workers` contiguous ranges, one
// per worker. Ranges never overlap, so workers write disjoint slices of the
// shared result arrays without synchronization; empty ranges are dropped.
func partitionRange(n, workers int) []workerRange {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	parts := make([]workerRange, 0, workers)
	for w := 0; w < workers; w++ {
		lo := w * n / workers
		hi := (w + 1) * n / workers
		if lo < hi {
			parts = append(parts, workerRange{lo: lo, hi: hi})
		}
	}
	return parts
}
