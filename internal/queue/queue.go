package queue

import "sync"

const minCapacity = 8

// Queue is a thread-safe unbounded FIFO backed by a ring buffer that doubles
// when full. Push never blocks; Pop blocks until an item arrives or the queue
// is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int
	count  int
	closed bool

	pushed int64
	popped int64
	grows  int
}

// Stats is a point-in-time view of a queue.
type Stats struct {
	Len      int
	Capacity int
	Pushed   int64
	Popped   int64
	Grows    int
}

// New creates a queue with the given initial capacity.
func New[T any](capacity int) *Queue[T] {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	q := &Queue[T]{ring: make([]T, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.count == len(q.ring) {
		q.grow()
	}

	q.ring[(q.head+q.count)%len(q.ring)] = item
	q.count++
	q.pushed++
	q.cond.Signal()
	return true
}

// Pop removes the oldest item, blocking while the queue is empty.
// After Close, remaining items are still returned; ok is false once the
// queue is closed and empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		return item, false
	}
	return q.take(), true
}

// TryPop removes the oldest item without blocking.
func (q *Queue[T]) TryPop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return item, false
	}
	return q.take(), true
}

// PopBatch blocks until at least one item is available, then removes up to
// max items (all of them if max <= 0). Returns nil once closed and empty.
func (q *Queue[T]) PopBatch(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	n := q.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	for i := range out {
		out[i] = q.take()
	}
	return out
}

// Close stops accepting items and wakes every blocked consumer.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns counters for the queue.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:      q.count,
		Capacity: len(q.ring),
		Pushed:   q.pushed,
		Popped:   q.popped,
		Grows:    q.grows,
	}
}

// take pops the head item. Caller holds q.mu and guarantees count > 0.
func (q *Queue[T]) take() T {
	var zero T
	item := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.popped++
	return item
}

// grow doubles the ring, unwrapping items to start at index 0.
func (q *Queue[T]) grow() {
	next := make([]T, len(q.ring)*2)
	n := copy(next, q.ring[q.head:])
	copy(next[n:], q.ring[:q.head])
	q.ring = next
	q.head = 0
	q.grows++
}
