// Package manager composes the resilience layer behind one facade.
//
// A Manager owns the connectivity prober, circuit breaker, connection
// monitor, and queue processor, supervises the two background loops, and
// exposes the operations generator code calls: queueing work, executing
// with a bounded wait, health and status snapshots, forced connectivity
// checks, and a plain-text status panel.
//
// Managers are constructed explicitly and injected; there is no package
// global. Tests build as many independent instances as they like.
package manager
