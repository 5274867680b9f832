package sequence

import "sync"

// Queue is a thread-safe FIFO. It is the hand-off point between background
// producers and a single frame-thread consumer.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends a value at the tail.
func (q *Queue[T]) Enqueue(value T) {
	q.mu.Lock()
	q.items = append(q.items, value)
	q.mu.Unlock()
}

// Dequeue removes and returns the oldest value.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Drain removes and returns every queued value, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}
