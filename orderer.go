package optics

import (
	"errors"
	"math"
)

// ErrCanceled is returned when the progress collaborator's stop signal
// unwinds a run. The nil result it accompanies is distinguishable from an
// empty result.
var ErrCanceled = errors.New("optics: canceled")

// Optics computes the OPTICS cluster order. distance is the generating
// distance E; a zero or invalid value is auto-derived from an
// assumed-uniform density model and the corrected value is reported in the
// result. minPts is clamped to at least 1.
//
// The driver is single-threaded and reuses engine state: only one pass may
// run on an engine at a time. Cancellation is polled once per processed
// point; a canceled run returns (nil, ErrCanceled).
func (e *Engine) Optics(distance float64, minPts int) (*OpticsResult, error) {
	if minPts < 1 {
		minPts = 1
	}
	generatingE := e.resolveGeneratingDistance(distance, minPts)
	finder := e.finderFor(generatingE)
	resetRecords(e.records)

	run := &opticsRun{
		eng:      e,
		finder:   finder,
		queue:    newSeedQueue(e.cfg.Queue, e.cfg.TieBreak),
		coreHeap: newBoundedHeap(minPts),
		minPts:   minPts,
		reporter: e.cfg.Progress,
		order:    make([]OpticsOrderEntry, 0, e.n()),
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
	run.reporter.Progress(1)

	return &OpticsResult{
		Order:              run.order,
		GeneratingDistance: generatingE,
		MinPts:             minPts,
	}, nil
}

// opticsRun bundles the state of one ordering pass.
type opticsRun struct {
	eng      *Engine
	finder   neighborFinder
	queue    seedQueue
	coreHeap *boundedHeap
	minPts   int
	reporter ProgressReporter
	order    []OpticsOrderEntry
	done     int

	// coreOf overrides the bounded-heap core distance; FastOPTICS supplies
	// the mean distance to the projected neighborhood here.
	coreOf func(id int) float64
}

// expand processes the given point and drains the seed queue it feeds.
// Returns false when the run was canceled.
func (r *opticsRun) expand(p *pointRecord) bool {
	current := p
	for {
		if r.reporter.Stopped() {
			return false
		}

		r.finder.findNeighboursAndDistances(r.minPts, int32(current.id))
		ids := r.finder.neighbors()
		dists := r.finder.distances()

		current.processed = true
		current.neighborCount = len(ids)
		if r.coreOf != nil {
			current.coreDistance = r.coreOf(current.id)
		} else {
			current.coreDistance = r.coreDistance(dists)
		}

		r.order = append(r.order, OpticsOrderEntry{
			ID:            current.id,
			Predecessor:   current.predecessor,
			CoreDistance:  current.coreDistance,
			Reachability:  current.reachability,
			NeighborCount: current.neighborCount,
		})
		r.done++
		r.reporter.Progress(float64(r.done) / float64(r.eng.n()))

		if current.isCore() {
			r.updateSeeds(current, ids, dists)
		}
		if !r.queue.hasNext() {
			return true
		}
		current = r.queue.next()
	}
}

// coreDistance computes the minPts-th smallest neighbor distance via the
// bounded max-heap: insert the first minPts distances, then replace the
// root whenever a smaller one arrives, O(n log minPts) overall. Returns the
// undefined sentinel when fewer than minPts (non-NaN) neighbors exist.
func (r *opticsRun) coreDistance(dists []float64) float64 {
	if len(dists) < r.minPts {
		return undefinedDistance()
	}
	r.coreHeap.reset()
	for _, d := range dists {
		r.coreHeap.offer(0, d)
	}
	if !r.coreHeap.full() {
		return undefinedDistance()
	}
	return r.coreHeap.max()
}

// updateSeeds queues the center's unprocessed neighbors, only ever lowering
// a queued neighbor's reachability, never raising it. A lowered record is
// re-heapified via moveUp.
func (r *opticsRun) updateSeeds(center *pointRecord, ids []int32, dists []float64) {
	for k, nb := range ids {
		q := &r.eng.records[nb]
		if q.processed {
			continue
		}
		newReach := math.Max(center.coreDistance, dists[k])
		if isUndefined(q.reachability) {
			q.reachability = newReach
			q.predecessor = center.id
			r.queue.push(q)
		} else if newReach < q.reachability {
			q.reachability = newReach
			q.predecessor = center.id
			r.queue.moveUp(q)
		}
	}
}
