package liveness

import (
	"sync"
	"time"
)

// Snapshot is an immutable copy of the tracker state at a single point in
// time. It is safe to evaluate shutdown policy against a Snapshot without
// holding any lock.
type Snapshot struct {
	// LastHeartbeat is the time the most recent heartbeat was observed.
	LastHeartbeat time.Time

	// DeparturePending reports whether a "going away" notice has arrived
	// and has not yet been resolved by a fresh heartbeat.
	DeparturePending bool

	// DepartureRequestedAt is the time the pending departure notice
	// arrived. It is the zero time whenever DeparturePending is false.
	DepartureRequestedAt time.Time

	// Terminated reports whether shutdown has been initiated.
	Terminated bool
}

// Tracker records liveness evidence for the single browser session.
//
// A Tracker is created with [NewTracker] and mutated concurrently by HTTP
// request handlers ([Tracker.Heartbeat], [Tracker.DepartureNotice]) and by
// the watchdog ([Tracker.Terminate], [Tracker.ResolveDeparture]).
//
// Invariants maintained by the tracker:
//   - the heartbeat timestamp never decreases
//   - DeparturePending and DepartureRequestedAt are set and cleared together
//   - Terminated latches true exactly once
type Tracker struct {
	now func() time.Time

	mu                   sync.Mutex
	lastHeartbeat        time.Time
	departurePending     bool
	departureRequestedAt time.Time
	terminated           bool
}

// NewTracker creates a [Tracker] whose heartbeat timestamp starts at the
// current time, so a freshly started server is considered live.
//
// now is the clock used for all timestamps; pass nil to use [time.Now].
// Tests inject a fake clock to drive the state machine deterministically.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		now:           now,
		lastHeartbeat: now(),
	}
}

// Heartbeat records that the tab is alive right now.
//
// A heartbeat also resolves any pending departure notice: a tab that is
// sending heartbeats again after a "going away" signal was merely reloaded.
// Safe for concurrent use from multiple request handlers; the heartbeat
// timestamp only ever moves forward.
func (t *Tracker) Heartbeat() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.After(t.lastHeartbeat) {
		t.lastHeartbeat = now
	}
	t.departurePending = false
	t.departureRequestedAt = time.Time{}
}

// DepartureNotice records that the tab reported it is going away.
//
// The notice only records intent; it never blocks on listener shutdown.
// Browsers send this signal fire-and-forget on tab close and on page
// reload alike, so the notice alone is not proof of permanent departure —
// the watchdog reconciles it against subsequent heartbeats. Notices that
// arrive after termination has latched are ignored.
func (t *Tracker) DepartureNotice() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}
	t.departurePending = true
	t.departureRequestedAt = now
}

// ResolveDeparture clears a pending departure notice without touching the
// heartbeat timestamp. The watchdog calls this when a heartbeat resumed
// shortly after a notice, i.e. the reload case.
func (t *Tracker) ResolveDeparture() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.departurePending = false
	t.departureRequestedAt = time.Time{}
}

// Terminate latches the terminated flag.
//
// It returns true only for the caller that performed the false→true
// transition; every later call is a no-op returning false. This makes
// shutdown idempotent regardless of how many paths (timeout, tab close,
// interrupt, listener failure) race to trigger it.
func (t *Tracker) Terminate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return false
	}
	t.terminated = true
	return true
}

// Snapshot returns a consistent copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		LastHeartbeat:        t.lastHeartbeat,
		DeparturePending:     t.departurePending,
		DepartureRequestedAt: t.departureRequestedAt,
		Terminated:           t.terminated,
	}
}
