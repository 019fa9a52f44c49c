// Package liveness tracks evidence of browser-tab liveness.
//
// This package is internal to tomato and holds the shared state the HTTP
// handlers write to (heartbeats, departure notices) and the watchdog reads
// from. It is pure state plus transition logic with no I/O of its own.
//
// The [Tracker] is the only mutable resource shared between the request
// handlers, the watchdog loop, and the signal path. All fields are mutated
// under a single mutex so readers never observe a partially-updated pair,
// and policy decisions are made from an immutable [Snapshot] rather than
// under the lock.
package liveness
