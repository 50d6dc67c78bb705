package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Queue is a thread-safe priority queue of requests. Strict priority
// ordering, FIFO within a tier.
type Queue struct {
	mu   sync.Mutex
	heap requestHeap
	seq  uint64

	// wake is signalled (non-blocking) on every push so a waiting Pop
	// can re-check the heap.
	wake chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push adds a request to the queue.
func (q *Queue) Push(req *Request) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.heap, &item{req: req, seq: q.seq})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the highest-priority request, waiting up to
// wait for one to arrive. Returns false on timeout or context
// cancellation.
func (q *Queue) Pop(ctx context.Context, wait time.Duration) (*Request, bool) {
	deadline := time.Now().Add(wait)
	for {
		q.mu.Lock()
		if q.heap.Len() > 0 {
			it := heap.Pop(&q.heap).(*item)
			q.mu.Unlock()
			return it.req, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-timer.C:
			return nil, false
		case <-q.wake:
			timer.Stop()
			// Re-check the heap; another Pop may have won the race.
		}
	}
}

// Remove deletes the queued request with the given ID, if still queued,
// and returns it. Returns nil when the request is not in the queue
// (already dequeued, retrying, or unknown).
func (q *Queue) Remove(id string) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.heap {
		if it.req.ID == id {
			heap.Remove(&q.heap, it.index)
			return it.req
		}
	}
	return nil
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
