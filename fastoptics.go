package optics

// FastOptics computes an OPTICS-style cluster order without a fixed
// generating distance, deriving per-point neighborhoods from repeated
// random projections (Schneider & Vlachos). splits and projections default
// from the problem size when <= 0. useRandomVectors projects onto random
// unit vectors instead of cycling the coordinate axes. saveApproxSets keeps
// the projected neighborhoods on the engine so a repeat call with the same
// parameters skips the projection stage (requires Config.Cache).
//
// A point's core distance is the mean distance to its projected
// neighborhood rather than a strict minPts-distance; the queue-driven
// expansion and reachability propagation are identical to Optics. The
// result's GeneratingDistance reports the maximum finite reachability,
// a usable threshold for ExtractDbscanClustering.
//
// The projection and split stages are partitioned across Config.Workers
// goroutines with a join per stage; a worker failure aborts the join, is
// logged through the progress collaborator, and returns a nil result.
func (e *Engine) FastOptics(minPts, splits, projections int, useRandomVectors, saveApproxSets bool, sampleMode SampleMode) (*OpticsResult, error) {
	if minPts < 1 {
		minPts = 1
	}
	reporter := e.cfg.Progress

	pf := e.cachedProjection(minPts, splits, projections, useRandomVectors, sampleMode)
	if pf == nil {
		pf = newProjectedFinder(e, minPts, splits, projections, useRandomVectors, sampleMode)
		if err := pf.build(); err != nil {
			reporter.Log("optics: projection stage failed: %v", err)
			return nil, err
		}
		if saveApproxSets && e.cfg.Cache {
			e.projFinder = pf
		}
	}
	resetRecords(e.records)

	run := &opticsRun{
		eng:      e,
		finder:   pf,
		queue:    newSeedQueue(e.cfg.Queue, e.cfg.TieBreak),
		minPts:   minPts,
		reporter: reporter,
		order:    make([]OpticsOrderEntry, 0, e.n()),
		coreOf:   func(id int) float64 { return pf.avgDist[id] },
	}

	for i := range e.records {
		p := &e.records[i]
		if p.processed {
			continue
		}
		if !run.expand(p) {
			run.queue.clear()
			return nil, ErrCanceled
		}
	}
	reporter.Progress(1)

	result := &OpticsResult{
		Order:  run.order,
		MinPts: minPts,
	}
	result.GeneratingDistance = result.MaxReachability()
	return result, nil
}

// cachedProjection returns the saved projection finder when its parameters
// match the request, or nil.
func (e *Engine) cachedProjection(minPts, splits, projections int, useRandomVectors bool, sampleMode SampleMode) *projectedFinder {
	pf := e.projFinder
	if pf == nil || !e.cfg.Cache {
		return nil
	}
	if pf.minSplitSize != maxInt(minPts, 1) ||
		pf.useRandomVectors != useRandomVectors ||
		pf.sampleMode != sampleMode {
		return nil
	}
	if splits > 0 && pf.numSplits != splits {
		return nil
	}
	if projections > 0 && pf.numProjections != projections {
		return nil
	}
	pf.reset()
	return pf
}
