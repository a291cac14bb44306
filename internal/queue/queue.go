// Package queue implements the unbounded multi-producer, multi-consumer
// queue that connects pipeline stages.
package queue

import (
	"sync"
	"sync/atomic"
)

// Queue never blocks producers. Consumers wait on Ready and then Drain.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	ready  chan struct{}
	closed bool

	pushed  atomic.Int64
	drained atomic.Int64
}

func New[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Push appends v. Pushing to a closed queue is dropped and reports false.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.pushed.Add(1)
	q.signal()
	return true
}

// Ready fires when items may be available. A wakeup can be spurious, so
// consumers must tolerate an empty Drain.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns everything currently queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	out := q.items
	q.items = nil
	q.mu.Unlock()
	q.drained.Add(int64(len(out)))
	return out
}

// Len is the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Queued items stay drainable.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

type Stats struct {
	Pushed  int64
	Drained int64
	Pending int
}

func (q *Queue[T]) Stats() Stats {
	return Stats{Pushed: q.pushed.Load(), Drained: q.drained.Load(), Pending: q.Len()}
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
