// Package queue provides a bounded, closable producer/consumer queue used
// to stage frames and packets between pipeline stages (capture -> encode,
// receive -> decode, and so on) without either side needing to know how
// many readers or writers are on the other end.
//
// Internally: two condition variables (not-empty, not-full) guarded by one
// mutex, so producers and consumers only wake when there is actually work
// for them, and a stop flag that unblocks everyone waiting once shutdown
// begins.
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrStopped is returned by callers that want to distinguish "the queue is
// closed" from other conditions via errors.Is; BlockingQueue itself never
// returns an error, communicating closure through the accepted-flag return
// documented on each method.
var ErrStopped = errors.New("queue: stopped")

// BlockingQueue is a bounded (or unbounded, when maxSize is 0) FIFO queue
// safe for concurrent producers and consumers.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []T
	maxSize  int
	stopped  bool
}

// New creates a BlockingQueue. A maxSize of 0 means unbounded.
func New[T any](maxSize int) *BlockingQueue[T] {
	q := &BlockingQueue[T]{maxSize: maxSize}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// push blocks until there is space for item, the queue is stopped, or,
// when hasDeadline is set, until deadline passes. It returns whether the
// item was accepted.
func (q *BlockingQueue[T]) push(item T, hasDeadline bool, deadline time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.stopped {
			return false
		}
		if q.maxSize == 0 || len(q.items) < q.maxSize {
			break
		}
		if !hasDeadline {
			q.notFull.Wait()
			continue
		}
		if !q.waitUntil(q.notFull, deadline) {
			return false
		}
	}

	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return true
}

// waitUntil waits on cond until signaled or deadline passes. Go's
// sync.Cond has no native timed wait, so a watcher goroutine broadcasts
// once the deadline elapses. Condition variables rather than channels
// because the queue's invariants are simplest to hold under one mutex.
func (q *BlockingQueue[T]) waitUntil(cond *sync.Cond, deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}

	timedOut := false
	timer := time.AfterFunc(remaining, func() {
		q.mu.Lock()
		timedOut = true
		q.mu.Unlock()
		cond.Broadcast()
	})
	defer timer.Stop()

	cond.Wait()
	return !timedOut
}

// Push blocks until item is accepted or the queue stops.
func (q *BlockingQueue[T]) Push(item T) bool {
	return q.push(item, false, time.Time{})
}

// PushMove is an alias for Push, kept for symmetry with the pop-side
// naming; Go passes values by assignment, so there is no separate
// move-semantics variant to provide.
func (q *BlockingQueue[T]) PushMove(item T) bool {
	return q.Push(item)
}

// PushTimeout blocks at most ms milliseconds.
func (q *BlockingQueue[T]) PushTimeout(item T, ms int) bool {
	return q.push(item, true, time.Now().Add(time.Duration(ms)*time.Millisecond))
}

// TryPush never blocks.
func (q *BlockingQueue[T]) TryPush(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	if q.maxSize != 0 && len(q.items) >= q.maxSize {
		return false
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return true
}

func (q *BlockingQueue[T]) pop(hasDeadline bool, deadline time.Time) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for len(q.items) == 0 {
		if q.stopped {
			return zero, false
		}
		if !hasDeadline {
			q.notEmpty.Wait()
			continue
		}
		if !q.waitUntil(q.notEmpty, deadline) {
			return zero, false
		}
	}

	item := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, true
}

// Pop blocks until an item is available or the queue both stops and
// drains; a stopped, empty queue returns (zero, false) immediately.
func (q *BlockingQueue[T]) Pop() (T, bool) {
	return q.pop(false, time.Time{})
}

// PopTimeout blocks at most ms milliseconds.
func (q *BlockingQueue[T]) PopTimeout(ms int) (T, bool) {
	return q.pop(true, time.Now().Add(time.Duration(ms)*time.Millisecond))
}

// TryPop never blocks.
func (q *BlockingQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, true
}

// Stop is idempotent. It wakes every blocked producer and consumer; new
// pushes are rejected from this point on, but pending items remain
// poppable until the queue empties.
func (q *BlockingQueue[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}
	q.stopped = true
	logrus.WithFields(logrus.Fields{
		"function": "BlockingQueue.Stop",
		"pending":  len(q.items),
	}).Debug("queue stopped")
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Clear drops all pending items, waking blocked producers.
func (q *BlockingQueue[T]) Clear() {
	q.ClearWithCleanup(nil)
}

// ClearWithCleanup drops all pending items, invoking cleanup for each one
// first (e.g. to release an owned raw pointer or GPU-backed frame).
func (q *BlockingQueue[T]) ClearWithCleanup(cleanup func(T)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cleanup != nil {
		for _, item := range q.items {
			cleanup(item)
		}
	}
	q.items = nil
	q.notFull.Broadcast()
}

// Reset reopens a stopped queue and drops its contents. The caller must
// ensure no concurrent producer or consumer is using the queue.
func (q *BlockingQueue[T]) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = false
	q.items = nil
}

// Size returns the current number of buffered items.
func (q *BlockingQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue currently holds no items.
func (q *BlockingQueue[T]) Empty() bool {
	return q.Size() == 0
}

// Full reports whether the queue is at its bound (always false when
// unbounded).
func (q *BlockingQueue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxSize != 0 && len(q.items) >= q.maxSize
}

// Stopped reports whether Stop has been called.
func (q *BlockingQueue[T]) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// MaxSize returns the configured bound (0 means unbounded).
func (q *BlockingQueue[T]) MaxSize() int {
	return q.maxSize
}
