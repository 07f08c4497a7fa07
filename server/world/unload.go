package world

// unloadQueue holds cube positions awaiting eviction consideration. Entries
// are drained in FIFO order in bounded batches. The queue de-duplicates
// entries; correctness does not depend on it, since the drain step re-checks
// liveness, but it keeps queue growth bounded when the same cube is queued
// repeatedly between drains.
type unloadQueue struct {
	entries []CubePos
	queued  map[CubePos]struct{}
}

func newUnloadQueue() *unloadQueue {
	return &unloadQueue{queued: make(map[CubePos]struct{})}
}

// push appends a position to the queue unless it is already pending.
func (q *unloadQueue) push(pos CubePos) {
	if _, ok := q.queued[pos]; ok {
		return
	}
	q.queued[pos] = struct{}{}
	q.entries = append(q.entries, pos)
}

// pop removes and returns the front of the queue.
func (q *unloadQueue) pop() (CubePos, bool) {
	if len(q.entries) == 0 {
		return CubePos{}, false
	}
	pos := q.entries[0]
	q.entries = q.entries[1:]
	delete(q.queued, pos)
	return pos, true
}

// len returns the number of pending entries.
func (q *unloadQueue) len() int {
	return len(q.entries)
}
