package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tomato-sh/tomato/internal/liveness"
	"github.com/tomato-sh/tomato/internal/metrics"
)

// Phase is the monitor's position in its lifecycle.
type Phase string

const (
	// PhaseWarmup is the initial phase. No shutdown decisions are made
	// while the browser is still loading the page and establishing its
	// first heartbeat.
	PhaseWarmup Phase = "warmup"

	// PhaseMonitoring is the steady state: the loop samples the tracker
	// at every check interval and evaluates the shutdown policy.
	PhaseMonitoring Phase = "monitoring"

	// PhaseTerminating is terminal. It is entered at most once.
	PhaseTerminating Phase = "terminating"
)

// gaugeValue maps a phase to its numeric metric representation.
func (p Phase) gaugeValue() float64 {
	switch p {
	case PhaseMonitoring:
		return 1
	case PhaseTerminating:
		return 2
	default:
		return 0
	}
}

// Config holds the timing knobs for the monitoring loop.
type Config struct {
	// Warmup is how long to wait before the first policy evaluation,
	// giving the browser time to load the page and send a heartbeat.
	Warmup time.Duration

	// CheckInterval is the period between policy evaluations.
	CheckInterval time.Duration

	// HeartbeatTimeout is how long the tab may stay silent before it is
	// considered gone. It is deliberately long because browsers throttle
	// timers in backgrounded tabs; an idle-but-open tab may miss several
	// expected heartbeat intervals.
	HeartbeatTimeout time.Duration

	// GracePeriod is how long after a departure notice to wait for a
	// heartbeat to resume before concluding the tab really closed.
	GracePeriod time.Duration

	// ResumeThreshold is the window after a departure notice within which
	// a fresh heartbeat reclassifies the notice as a page reload. It must
	// be shorter than GracePeriod.
	ResumeThreshold time.Duration
}

// Monitor periodically evaluates liveness evidence and triggers shutdown.
//
// Create one with [New], run its loop with [Monitor.Run] (blocking, usually
// on its own goroutine), and wait for [Monitor.Done]. External failure
// paths deliver into the same state machine via [Monitor.ForceTerminate].
type Monitor struct {
	tracker  *liveness.Tracker
	cfg      Config
	shutdown func(reason string)
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	phase Phase

	// terminated is closed by the first ForceTerminate so the loop wakes
	// immediately even mid-warmup.
	terminated chan struct{}

	done chan struct{}
}

// New creates a [Monitor].
//
// shutdown is invoked exactly once, on its own goroutine, when the monitor
// commits to termination; it receives a human-readable reason. now is the
// clock used for policy evaluation; pass nil for [time.Now].
func New(tracker *liveness.Tracker, cfg Config, shutdown func(reason string), logger *slog.Logger, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		tracker:    tracker,
		cfg:        cfg,
		shutdown:   shutdown,
		logger:     logger,
		now:        now,
		phase:      PhaseWarmup,
		terminated: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Phase returns the monitor's current phase.
func (m *Monitor) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Monitor) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
	metrics.SetWatchdogPhase(p.gaugeValue())
}

// Done returns a channel that is closed when the monitoring loop exits.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Run executes the monitoring loop until termination latches or ctx is
// cancelled. Cancellation (the interrupt path) is treated as a forced
// transition to terminating, so signals share the shutdown code path with
// the heartbeat policy.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.done)

	warmup := time.NewTimer(m.cfg.Warmup)
	defer warmup.Stop()

	select {
	case <-ctx.Done():
		m.ForceTerminate("interrupt received")
		return
	case <-m.terminated:
		return
	case <-warmup.C:
	}

	m.setPhase(PhaseMonitoring)
	m.logger.Debug("watchdog monitoring", "check_interval", m.cfg.CheckInterval.String())

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.ForceTerminate("interrupt received")
			return
		case <-m.terminated:
			return
		case <-ticker.C:
			snap := m.tracker.Snapshot()
			if snap.Terminated {
				return
			}

			switch verdict, reason := decide(snap, m.now(), m.cfg); verdict {
			case decideWait:
			case decideResume:
				m.tracker.ResolveDeparture()
				m.logger.Info("heartbeat resumed after departure notice, treating as page reload")
			case decideTerminate:
				m.ForceTerminate(reason)
				return
			}
		}
	}
}

// ForceTerminate commits to shutdown with the given reason.
//
// Safe to call from any goroutine and at any phase. Only the first caller
// across the whole process performs the transition; the shutdown callback
// runs on a separate goroutine so no caller ever blocks on the listener
// winding down.
func (m *Monitor) ForceTerminate(reason string) {
	if !m.tracker.Terminate() {
		return
	}
	m.setPhase(PhaseTerminating)
	close(m.terminated)
	m.logger.Info("shutting down", "reason", reason)
	go m.shutdown(reason)
}

// verdict is the outcome of a single policy evaluation.
type verdict int

const (
	decideWait verdict = iota
	decideResume
	decideTerminate
)

// decide evaluates the shutdown policy against a snapshot.
//
// decide is a pure function of the snapshot, the current time, and the
// configured thresholds, which keeps the reload-vs-close heuristic
// unit-testable without timers.
func decide(s liveness.Snapshot, now time.Time, cfg Config) (verdict, string) {
	sinceHeartbeat := now.Sub(s.LastHeartbeat)

	if s.DeparturePending {
		if sinceHeartbeat < cfg.ResumeThreshold {
			return decideResume, ""
		}
		if now.Sub(s.DepartureRequestedAt) > cfg.GracePeriod && sinceHeartbeat > cfg.GracePeriod {
			return decideTerminate, "tab closed"
		}
		return decideWait, ""
	}

	if sinceHeartbeat > cfg.HeartbeatTimeout {
		return decideTerminate, fmt.Sprintf("no heartbeat for %.0f seconds", sinceHeartbeat.Seconds())
	}
	return decideWait, ""
}
