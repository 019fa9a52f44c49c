// Package server provides the HTTP surface of the tomato timer.
//
// This package is internal to tomato and handles all HTTP concerns:
//
//   - Timer page serving: the embedded single-page app at "/"
//   - Liveness protocol: GET /heartbeat and POST /shutdown
//   - Session introspection: JSON at "/api/status"
//   - Prometheus metrics at "/metrics"
//
// The liveness endpoints always acknowledge with success: the browser sends
// them fire-and-forget and cannot retry, so all liveness decisions are made
// server-side from accumulated evidence rather than from the fate of any
// single request.
//
// Listener shutdown is driven externally (by the watchdog) through
// [Server.Shutdown], keeping a single shutdown code path; the server never
// stops itself on context cancellation.
package server
