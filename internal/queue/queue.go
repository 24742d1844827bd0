// Package queue implements unbounded multi-producer single-consumer FIFO.
// Send never blocks, so producers are never slowed down by consumer.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("queue closed")

// Queue should be created by New().
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
	out    chan T
}

// New creates Queue and starts delivery goroutine.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		out: make(chan T),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.deliver()
	return q
}

// Send appends item to queue.
func (q *Queue[T]) Send(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// Close stops accepting new items. Already queued items are still delivered,
// after that channel returned by C() is closed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// C returns channel with queued items in FIFO order.
func (q *Queue[T]) C() <-chan T {
	return q.out
}

// Len returns number of items waiting for consumer.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) deliver() {
	defer close(q.out)
	var zero T
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()

		q.out <- item
	}
}
