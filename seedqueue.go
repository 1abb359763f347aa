package optics

// TieBreak selects how a seed queue orders records whose reachability
// distances are equal. The strict policies reproduce the observable
// ordering of a reference implementation for compatibility testing; any
// policy yields a valid OPTICS ordering.
type TieBreak int

const (
	// TieBreakNone leaves the order among equal reachabilities unspecified.
	TieBreakNone TieBreak = iota
	// TieBreakAscending pops equal reachabilities in ascending id order.
	TieBreakAscending
	// TieBreakDescending pops equal reachabilities in descending id order.
	TieBreakDescending
)

// QueueStructure selects the seed queue implementation.
type QueueStructure int

const (
	// QueueBinaryHeap is the general-purpose binary min-heap.
	QueueBinaryHeap QueueStructure = iota
	// QueueFlatList is a flat list with linear rescan, faster for the small
	// queues produced by low minPts values.
	QueueFlatList
)

// seedQueue holds references into the engine's point records, ordered by
// reachability distance. A record belongs to at most one queue at a time;
// its queueIndex field is owned by that queue and is valid only while the
// record is live in it.
type seedQueue interface {
	// push inserts an unqueued record.
	push(p *pointRecord)
	// moveUp re-establishes order after the record's reachability decreased.
	moveUp(p *pointRecord)
	// next removes and returns the minimum record.
	next() *pointRecord
	hasNext() bool
	clear()
}

func newSeedQueue(structure QueueStructure, tie TieBreak) seedQueue {
	less := lessFor(tie)
	if structure == QueueFlatList {
		return &listQueue{less: less}
	}
	return &heapQueue{less: less}
}

// lessFor builds the record comparator for a tie policy: reachability first,
// then ids per policy.
func lessFor(tie TieBreak) func(a, b *pointRecord) bool {
	switch tie {
	case TieBreakAscending:
		return func(a, b *pointRecord) bool {
			if a.reachability != b.reachability {
				return a.reachability < b.reachability
			}
			return a.id < b.id
		}
	case TieBreakDescending:
		return func(a, b *pointRecord) bool {
			if a.reachability != b.reachability {
				return a.reachability < b.reachability
			}
			return a.id > b.id
		}
	default:
		return func(a, b *pointRecord) bool {
			return a.reachability < b.reachability
		}
	}
}

// heapQueue is a binary min-heap keyed by the tie-aware comparator. Records
// track their heap slot in queueIndex, so moveUp is a positional sift rather
// than a rescan.
type heapQueue struct {
	items []*pointRecord
	less  func(a, b *pointRecord) bool
}

func (q *heapQueue) push(p *pointRecord) {
	p.queueIndex = len(q.items)
	q.items = append(q.items, p)
	q.siftUp(p.queueIndex)
}

func (q *heapQueue) moveUp(p *pointRecord) {
	q.siftUp(p.queueIndex)
}

func (q *heapQueue) next() *pointRecord {
	p := q.items[0]
	last := len(q.items) - 1
	q.items[0] = q.items[last]
	q.items[0].queueIndex = 0
	q.items = q.items[:last]
	if last > 0 {
		q.siftDown(0)
	}
	p.queueIndex = -1
	return p
}

func (q *heapQueue) hasNext() bool { return len(q.items) > 0 }

func (q *heapQueue) clear() {
	for _, p := range q.items {
		p.queueIndex = -1
	}
	q.items = q.items[:0]
}

func (q *heapQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(q.items[i], q.items[parent]) {
			return
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *heapQueue) siftDown(i int) {
	n := len(q.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && q.less(q.items[left], q.items[smallest]) {
			smallest = left
		}
		if right < n && q.less(q.items[right], q.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		q.swap(i, smallest)
		i = smallest
	}
}

func (q *heapQueue) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].queueIndex = i
	q.items[j].queueIndex = j
}

// listQueue is a flat list: push appends, next rescans for the minimum and
// swap-removes it. For the small seed sets of low-minPts runs the rescan
// beats heap maintenance.
type listQueue struct {
	items []*pointRecord
	less  func(a, b *pointRecord) bool
}

func (q *listQueue) push(p *pointRecord) {
	p.queueIndex = len(q.items)
	q.items = append(q.items, p)
}

// moveUp is a no-op: position is irrelevant to the rescan.
func (q *listQueue) moveUp(*pointRecord) {}

func (q *listQueue) next() *pointRecord {
	minIdx := 0
	for i := 1; i < len(q.items); i++ {
		if q.less(q.items[i], q.items[minIdx]) {
			minIdx = i
		}
	}
	p := q.items[minIdx]
	last := len(q.items) - 1
	q.items[minIdx] = q.items[last]
	q.items[minIdx].queueIndex = minIdx
	q.items = q.items[:last]
	p.queueIndex = -1
	return p
}

func (q *listQueue) hasNext() bool { return len(q.items) > 0 }

func (q *listQueue) clear() {
	for _, p := range q.items {
		p.queueIndex = -1
	}
	q.items = q.items[:0]
}
