// Package watchdog decides when the server should shut itself down.
//
// The [Monitor] runs a single periodic loop that samples the liveness
// tracker and reconciles two unreliable signals into one decision: the
// browser's fire-and-forget "going away" beacon and the slower, more
// authoritative stream of heartbeats. A departure notice followed quickly
// by a fresh heartbeat was a page reload; a notice with no heartbeat after
// the grace period was a real tab close; silence beyond the heartbeat
// timeout means the tab is gone even without a notice.
//
// All shutdown triggers — the heartbeat timeout, a confirmed tab close, an
// OS interrupt delivered via context cancellation, or a listener failure
// reported through [Monitor.ForceTerminate] — funnel through the same
// terminating transition, which latches exactly once and invokes the
// shutdown callback on its own goroutine so the loop never blocks on the
// listener.
package watchdog
