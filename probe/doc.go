// Package probe answers one question: is this machine on the internet
// right now?
//
// A probe runs a short chain of checks ordered cheapest to most
// authoritative:
//
//  1. Local interface inspection — if no non-loopback interface is up,
//     fail fast without touching the network.
//  2. DNS resolution of a well-known hostname — failure means not
//     connected.
//  3. HTTPS request to a low-latency status endpoint — a 2xx response
//     short-circuits as connected.
//  4. Fallback HTTPS request to a second well-known URL.
//
// Check never panics and never returns an error as a value judgement:
// every transport failure is folded into a not-connected Result with the
// causing error attached for diagnostics.
//
// The connection monitor polls a Prober on an interval; the facade's
// forced check calls it directly.
package probe
