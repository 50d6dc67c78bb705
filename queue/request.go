package queue

import (
	"context"
	"time"
)

// Priority orders requests in the queue. Lower values dequeue first.
type Priority int

const (
	// PriorityCritical is for requests the generation pipeline blocks on.
	PriorityCritical Priority = iota
	// PriorityHigh is for user-visible work.
	PriorityHigh
	// PriorityNormal is the default tier.
	PriorityNormal
	// PriorityLow is for prefetching and other deferrable work.
	PriorityLow
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Callable is the unit of work a request wraps. The context is the
// processor's run context; observing it is optional but lets the work
// stop early on shutdown.
type Callable func(ctx context.Context) (any, error)

// DefaultMaxRetries is the retry budget applied when a request does not
// set its own.
const DefaultMaxRetries = 3

// Request is one queued unit of work and its retry bookkeeping.
type Request struct {
	// ID identifies the request. Assigned on submit when empty.
	ID string

	// Priority is the queue tier. Zero value is PriorityCritical, so
	// callers should set it explicitly; the facade defaults to Normal.
	Priority Priority

	// Call is the work to run. Required.
	Call Callable

	// MaxRetries is the number of re-attempts after the first failure.
	// Default: DefaultMaxRetries
	MaxRetries int

	// RetryCount is the number of failures so far. Managed by the
	// processor.
	RetryCount int

	// CreatedAt is stamped on submit.
	CreatedAt time.Time

	// ErrorHistory holds the message of every failed attempt, oldest
	// first.
	ErrorHistory []string
}

// item wraps a request with its heap bookkeeping. seq breaks priority
// ties so equal tiers stay FIFO.
type item struct {
	req   *Request
	seq   uint64
	index int
}

// requestHeap implements container/heap ordering on (priority, seq).
type requestHeap []*item

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority < h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *requestHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
