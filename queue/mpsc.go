// Package queue implements the lock-free multi-producer single-consumer
// event queue described in §4.1: the instrumentation hot path enqueues
// QueueItem records without blocking or allocating in the steady state, and
// a single worker goroutine drains them in FIFO order per producer.
//
// The underlying primitive is a fixed-capacity ring buffer of slots, each
// guarded by a sequence number (the classic bounded MPSC ring used by
// disruptor-style queues). Unlike an unbounded queue that grows forever
// under backpressure, this ring enforces §3 invariant 5 and §7's
// OverflowDrop policy directly: when the ring is full, TryPush returns false
// instead of blocking or allocating a new block, and the caller drops the
// event.
package queue

import (
	"sync/atomic"

	"github.com/tgfxgo/inspector/wire"
)

type slot struct {
	seq  atomic.Uint64
	item wire.QueueItem
}

// Queue is a bounded lock-free MPSC ring buffer of wire.QueueItem.
type Queue struct {
	mask  uint64
	slots []slot

	head atomic.Uint64 // next write position, claimed by producers
	tail atomic.Uint64 // next read position, owned by the single consumer
}

// New creates a Queue with the given capacity, rounded up to the next power
// of two. A capacity of 0 defaults to 1024.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	capacity = nextPow2(capacity)

	q := &Queue{
		mask:  uint64(capacity - 1),
		slots: make([]slot, capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush attempts to enqueue item without blocking. It returns false if the
// ring is full; the caller is responsible for counting the drop (see
// metrics.QueueDroppedTotal) and must never retry in a busy loop on the hot
// path, since that would reintroduce blocking.
func (q *Queue) TryPush(item wire.QueueItem) bool {
	for {
		pos := q.head.Load()
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()

		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				s.item = item
				s.seq.Store(pos + 1)
				return true
			}
			// lost the race to another producer, retry
		case diff < 0:
			// ring full: the slot we'd claim hasn't been consumed yet
			return false
		default:
			// another producer has already advanced head past our read; retry
		}
	}
}

// TryPop attempts to dequeue the next item for the single consumer. It
// returns false if the ring is currently empty.
func (q *Queue) TryPop() (wire.QueueItem, bool) {
	pos := q.tail.Load()
	s := &q.slots[pos&q.mask]
	seq := s.seq.Load()

	diff := int64(seq) - int64(pos+1)
	if diff != 0 {
		return wire.QueueItem{}, false
	}

	item := s.item
	q.tail.Store(pos + 1)
	s.seq.Store(pos + q.mask + 1)
	return item, true
}

// Len returns a point-in-time estimate of the number of queued items. It is
// advisory only (head/tail move concurrently) and is intended for metrics
// and tests, never for control flow.
func (q *Queue) Len() int {
	h := q.head.Load()
	t := q.tail.Load()
	if h < t {
		return 0
	}
	return int(h - t)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
