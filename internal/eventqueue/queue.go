// Package eventqueue implements the bounded, multi-producer multi-consumer
// FIFO queue that carries model.Event values between the transport layer and
// the dispatch/handler layer.
package eventqueue

import (
	"container/list"
	"log/slog"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 10000

// Queue is a bounded FIFO of model.Event. When a push would exceed capacity,
// the oldest entries are dropped to make room — the queue never blocks a
// producer and never grows past its capacity. This is a deliberately lossy,
// latest-priority design: the upstream producers cannot be back-pressured
// and the simulation loop must never stall waiting for a full queue to
// drain.
type Queue struct {
	name     string
	capacity int

	mu       sync.Mutex
	cond     *sync.Cond
	items    *list.List
	dropped  uint64
	closed   bool

	log *slog.Logger
}

// New creates a Queue with the given capacity. name is used only for log
// lines (e.g. "ingress-client", "ingress-upstream", "ping").
func New(name string, capacity int, log *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		name:     name,
		capacity: capacity,
		items:    list.New(),
		log:      log,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a single event, dropping the oldest entries first if the
// queue is at capacity.
func (q *Queue) Push(e model.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items.PushBack(e)
	q.enforceLimitLocked()
	q.cond.Signal()
}

// PushBatch enqueues multiple events atomically with respect to capacity
// enforcement: room is made for the whole batch before any element is
// appended, so a single large batch cannot be partially admitted and then
// immediately evict itself.
func (q *Queue) PushBatch(events []model.Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	incoming := len(events)
	if q.items.Len()+incoming > q.capacity {
		toRemove := (q.items.Len() + incoming) - q.capacity
		for i := 0; i < toRemove && q.items.Len() > 0; i++ {
			q.items.Remove(q.items.Front())
			q.dropped++
		}
	}
	for _, e := range events {
		q.items.PushBack(e)
	}
	q.enforceLimitLocked()
	q.cond.Broadcast()
}

// enforceLimitLocked drops oldest entries until size <= capacity. Caller
// must hold q.mu.
func (q *Queue) enforceLimitLocked() {
	for q.items.Len() > q.capacity {
		q.items.Remove(q.items.Front())
		q.dropped++
		if q.dropped%1000 == 0 {
			q.log.Warn("eventqueue: sustained overflow, dropping oldest events",
				"queue", q.name, "dropped_total", q.dropped)
		}
	}
}

// Pop blocks until an event is available or the queue is closed, returning
// ok=false in the latter case.
func (q *Queue) Pop() (e model.Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return model.Event{}, false
	}
	front := q.items.Remove(q.items.Front())
	return front.(model.Event), true
}

// PopBatch blocks until at least one event is available, then drains up to
// max events. Returns ok=false only when the queue is closed and drained.
func (q *Queue) PopBatch(max int) (events []model.Event, ok bool) {
	if max <= 0 {
		max = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return nil, false
	}
	n := max
	if q.items.Len() < n {
		n = q.items.Len()
	}
	events = make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		front := q.items.Remove(q.items.Front())
		events = append(events, front.(model.Event))
	}
	return events, true
}

// Size returns the current queue length.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Dropped returns the cumulative number of events dropped to overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// ForceCleanup releases the internal list's backing storage when the queue
// is currently empty. A no-op otherwise; Go's GC reclaims list nodes as they
// are unlinked, so this mainly matters for the doubly-linked list header
// itself after long runs of churn.
func (q *Queue) ForceCleanup() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		q.items = list.New()
	}
}

// Close marks the queue closed and wakes all blocked consumers. Further
// pushes are silently dropped; PopBatch/Pop drain remaining items first and
// then report ok=false.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
