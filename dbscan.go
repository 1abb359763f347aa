package optics

// Dbscan clusters the points with DBSCAN at the given generating distance
// and minPts. Invalid distances are corrected exactly as in Optics and the
// corrected value is reported in the result.
//
// Expansion is breadth-first through a FIFO queue, so the output is
// order-independent aside from cluster numbering: a neighbor not yet
// claimed by any cluster gets the cluster id immediately (border points
// included), but only points later found to be core enqueue their own
// neighbors. Returns (nil, ErrCanceled) when the stop signal fires.
func (e *Engine) Dbscan(distance float64, minPts int) (*DbscanResult, error) {
	if minPts < 1 {
		minPts = 1
	}
	generatingE := e.resolveGeneratingDistance(distance, minPts)
	finder := e.finderFor(generatingE)
	resetRecords(e.records)
	reporter := e.cfg.Progress

	n := e.n()
	clusterID := 0
	done := 0
	fifo := make([]int32, 0, 64)

	for i := range e.records {
		p := &e.records[i]
		if p.processed {
			continue
		}
		if reporter.Stopped() {
			return nil, ErrCanceled
		}

		finder.findNeighbours(minPts, int32(p.id))
		ids := finder.neighbors()
		p.processed = true
		p.neighborCount = len(ids)
		done++
		reporter.Progress(float64(done) / float64(n))

		if len(ids) < minPts {
			continue // noise unless a later cluster claims it as border
		}

		clusterID++
		p.clusterID = clusterID

		fifo = fifo[:0]
		for _, nb := range ids {
			q := &e.records[nb]
			if q.clusterID == 0 {
				q.clusterID = clusterID
			}
			if !q.processed && q.queueIndex < 0 {
				q.queueIndex = 0 // enqueued marker
				fifo = append(fifo, nb)
			}
		}

		for len(fifo) > 0 {
			if reporter.Stopped() {
				return nil, ErrCanceled
			}
			id := fifo[0]
			fifo = fifo[1:]
			q := &e.records[id]
			q.queueIndex = -1
			if q.processed {
				continue
			}

			finder.findNeighbours(minPts, id)
			nbs := finder.neighbors()
			q.processed = true
			q.neighborCount = len(nbs)
			done++
			reporter.Progress(float64(done) / float64(n))

			if len(nbs) < minPts {
				continue // border point: labeled, but expands nothing
			}
			for _, nb := range nbs {
				r := &e.records[nb]
				if r.clusterID == 0 {
					r.clusterID = clusterID
				}
				if !r.processed && r.queueIndex < 0 {
					r.queueIndex = 0
					fifo = append(fifo, nb)
				}
			}
		}
	}
	reporter.Progress(1)

	labels := make([]int, n)
	counts := make([]int, n)
	for i := range e.records {
		labels[i] = e.records[i].clusterID
		counts[i] = e.records[i].neighborCount
	}
	return &DbscanResult{
		Labels:             labels,
		NeighborCounts:     counts,
		Clusters:           clusterID,
		GeneratingDistance: generatingE,
		MinPts:             minPts,
	}, nil
}
