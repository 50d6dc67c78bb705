// Package monitor tracks the process-wide view of network health.
//
// A Monitor runs one background loop that polls the connectivity prober
// on an interval, derives the current Status, maintains NetworkMetrics
// and a bounded status history, feeds probe outcomes into the circuit
// breaker, and fans out status-change callbacks.
//
// Status and the breaker are deliberately independent signals: Status is
// the user-facing view (including the Unstable flapping hint), while the
// breaker is the fail-fast gate the queue processor obeys. They usually
// agree, but briefly diverging is by construction, not a bug.
//
// The loop is built to run unsupervised for the process lifetime: a
// panicking callback or probe cannot kill it, and shutdown is observed
// within a small polling slice even in the middle of a long interval.
package monitor
