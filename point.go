package optics

import "math"

// noPredecessor marks a point that was reached directly rather than through
// queue expansion.
const noPredecessor = -1

// undefinedDistance is the sentinel for "no core distance" and "unreached".
// A point is a core point iff its coreDistance is not the sentinel.
func undefinedDistance() float64 { return math.Inf(1) }

func isUndefined(d float64) bool { return math.IsInf(d, 1) }

// pointRecord is the per-point mutable clustering state. Records are created
// once per engine, mutated during exactly one run, and reset between runs.
// The queueIndex field is owned by whichever seed queue currently holds the
// record; it is meaningless otherwise.
type pointRecord struct {
	id int

	coreDistance float64 // undefinedDistance() = not a core point
	reachability float64 // undefinedDistance() = unreached
	predecessor  int

	processed     bool
	clusterID     int // 0 = unassigned / noise
	neighborCount int

	queueIndex int
}

func newPointRecords(n int) []pointRecord {
	records := make([]pointRecord, n)
	for i := range records {
		records[i].id = i
		records[i].reset()
	}
	return records
}

// reset clears mutable clustering state, keeping the record's identity.
func (p *pointRecord) reset() {
	p.coreDistance = undefinedDistance()
	p.reachability = undefinedDistance()
	p.predecessor = noPredecessor
	p.processed = false
	p.clusterID = 0
	p.neighborCount = 0
	p.queueIndex = -1
}

func resetRecords(records []pointRecord) {
	for i := range records {
		records[i].reset()
	}
}

func (p *pointRecord) isCore() bool { return !isUndefined(p.coreDistance) }
