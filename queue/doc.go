// Package queue implements the priority request queue and its processor.
//
// Requests carry a priority tier; the queue orders strictly by tier and
// FIFO within a tier. A single-worker Processor drains the queue, pausing
// without dequeuing while the circuit breaker is open or the network is
// down, and re-enqueues failed requests on a timer with exponential
// delays capped at five minutes.
//
// Cancellation is best-effort: it removes the queued item and the
// completion handler, but work already executing and retries already
// scheduled run to completion with their result dropped.
package queue
