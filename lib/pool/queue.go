package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node represents a single element in the queue
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is an unbounded multi-producer queue whose items are delivered on a
// channel. Any number of goroutines may receive from Recv(), the channel is
// closed once the queue is closed and every pushed item was delivered.
//
// Producers never block on consumers: Push appends to a linked list with
// atomic operations and a single pump goroutine moves items to the channel.
type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]
	out  chan T
	pump sync.WaitGroup

	// closeMu orders Push against Close: a Push that saw the queue open
	// finishes appending before Close marks it closed
	closeMu sync.RWMutex
	closed  atomic.Bool

	// condition variable for the idle pump
	mu   sync.Mutex
	cond *sync.Cond
}

// NewQueue creates an empty queue and starts its pump goroutine
func NewQueue[T any]() *Queue[T] {
	sentinel := &node[T]{}

	q := &Queue[T]{
		out: make(chan T),
	}
	q.cond = sync.NewCond(&q.mu)

	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.pump.Add(1)
	go q.run()

	return q
}

// Push appends value to the queue.
// Returns false if the queue is closed.
func (q *Queue[T]) Push(value T) bool {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()

	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}

	var backoff uint8 = 0
	for {
		tailNode := q.tail.Load()

		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// may fail if another producer already moved the tail
				q.tail.CompareAndSwap(tailNode, newNode)
				q.signal()
				return true
			}
		} else {
			// another producer appended but has not moved the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// Recv returns the channel the items are delivered on
func (q *Queue[T]) Recv() <-chan T {
	return q.out
}

// Close stops accepting new items. Items already pushed are still delivered,
// after that the Recv channel is closed. Close is idempotent.
func (q *Queue[T]) Close() {
	q.closeMu.Lock()
	q.closed.Store(true)
	q.closeMu.Unlock()

	q.signal()
}

// IsClosed returns true if the queue is closed
func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len counts the items that were pushed but not yet handed to the pump.
// This is O(n) and meant for tests and debugging.
func (q *Queue[T]) Len() int {
	count := 0
	current := q.head.Load()
	for {
		next := current.next.Load()
		if next == nil {
			break
		}
		count++
		current = next
	}
	return count
}

// signal wakes the pump. Holding mu while signalling prevents a wakeup from
// getting lost between the pump's emptiness check and its Wait.
func (q *Queue[T]) signal() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// run moves items from the linked list to the out channel
func (q *Queue[T]) run() {
	defer q.pump.Done()
	defer close(q.out)

	var zero T
	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			value := next.value
			q.head.Store(next)
			q.out <- value

			// release the reference, next is the new sentinel
			next.value = zero
		}

		if hasItems {
			continue
		}

		// once closed is observed every Push has finished, so an empty
		// list at this point stays empty
		if q.closed.Load() {
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil && !q.closed.Load() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}
