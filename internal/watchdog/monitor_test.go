package watchdog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomato-sh/tomato/internal/liveness"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig mirrors the production defaults: 120s heartbeat timeout,
// 3s grace period, 2s resume threshold.
func testConfig() Config {
	return Config{
		Warmup:           0,
		CheckInterval:    time.Second,
		HeartbeatTimeout: 120 * time.Second,
		GracePeriod:      3 * time.Second,
		ResumeThreshold:  2 * time.Second,
	}
}

func TestDecide_ScenarioTable(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }
	cfg := testConfig()

	tests := []struct {
		name string
		snap liveness.Snapshot
		now  time.Time
		want verdict
	}{
		{
			name: "fresh heartbeat keeps waiting",
			snap: liveness.Snapshot{LastHeartbeat: at(0)},
			now:  at(30),
			want: decideWait,
		},
		{
			name: "heartbeat exactly at timeout still waits",
			snap: liveness.Snapshot{LastHeartbeat: at(0)},
			now:  at(120),
			want: decideWait,
		},
		{
			name: "no heartbeat past timeout terminates",
			snap: liveness.Snapshot{LastHeartbeat: at(0)},
			now:  at(121),
			want: decideTerminate,
		},
		{
			name: "notice then quick heartbeat is a reload",
			snap: liveness.Snapshot{
				LastHeartbeat:        at(11),
				DeparturePending:     true,
				DepartureRequestedAt: at(10),
			},
			now:  at(12),
			want: decideResume,
		},
		{
			name: "notice with no heartbeat past grace is a close",
			snap: liveness.Snapshot{
				LastHeartbeat:        at(0),
				DeparturePending:     true,
				DepartureRequestedAt: at(10),
			},
			now:  at(14),
			want: decideTerminate,
		},
		{
			name: "notice inside grace period waits",
			snap: liveness.Snapshot{
				LastHeartbeat:        at(0),
				DeparturePending:     true,
				DepartureRequestedAt: at(10),
			},
			now:  at(12),
			want: decideWait,
		},
		{
			name: "stale heartbeat but recent notice waits out the grace",
			snap: liveness.Snapshot{
				LastHeartbeat:        at(0),
				DeparturePending:     true,
				DepartureRequestedAt: at(118),
			},
			now:  at(119),
			want: decideWait,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := decide(tt.snap, tt.now, cfg)
			if got != tt.want {
				t.Errorf("decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide_TerminateReasons(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()

	_, reason := decide(liveness.Snapshot{LastHeartbeat: base}, base.Add(130*time.Second), cfg)
	if !strings.Contains(reason, "no heartbeat for 130 seconds") {
		t.Errorf("timeout reason = %q, want mention of elapsed seconds", reason)
	}

	_, reason = decide(liveness.Snapshot{
		LastHeartbeat:        base,
		DeparturePending:     true,
		DepartureRequestedAt: base.Add(10 * time.Second),
	}, base.Add(20*time.Second), cfg)
	if reason != "tab closed" {
		t.Errorf("close reason = %q, want %q", reason, "tab closed")
	}
}

func TestDecide_RegularHeartbeatsNeverTerminate(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()

	// heartbeats every 60s for an hour, evaluated 1s after each beat
	for i := 0; i < 60; i++ {
		beat := base.Add(time.Duration(i) * time.Minute)
		v, _ := decide(liveness.Snapshot{LastHeartbeat: beat}, beat.Add(59*time.Second), cfg)
		if v != decideWait {
			t.Fatalf("iteration %d: decide() = %v, want decideWait", i, v)
		}
	}
}

func TestMonitor_TerminatesOnHeartbeatTimeout(t *testing.T) {
	clock := struct {
		mu  sync.Mutex
		now time.Time
	}{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	nowFn := func() time.Time {
		clock.mu.Lock()
		defer clock.mu.Unlock()
		return clock.now
	}

	tr := liveness.NewTracker(nowFn)

	// push the virtual clock past the timeout so the first evaluation fires
	clock.mu.Lock()
	clock.now = clock.now.Add(121 * time.Second)
	clock.mu.Unlock()

	var calls atomic.Int32
	reasons := make(chan string, 1)
	cfg := testConfig()
	cfg.CheckInterval = 5 * time.Millisecond

	m := New(tr, cfg, func(reason string) {
		calls.Add(1)
		reasons <- reason
	}, testLogger(), nowFn)

	go m.Run(context.Background())

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not terminate on heartbeat timeout")
	}

	select {
	case reason := <-reasons:
		if !strings.Contains(reason, "no heartbeat") {
			t.Errorf("reason = %q, want heartbeat timeout", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown callback was not invoked")
	}

	if got := m.Phase(); got != PhaseTerminating {
		t.Errorf("Phase() = %v, want %v", got, PhaseTerminating)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("shutdown invoked %d times, want 1", got)
	}
}

func TestMonitor_NoDecisionsDuringWarmup(t *testing.T) {
	past := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return past.Add(500 * time.Second) }

	// tracker state is already far past the timeout, but warmup must
	// prevent any termination
	tr := liveness.NewTracker(func() time.Time { return past })

	var calls atomic.Int32
	cfg := testConfig()
	cfg.Warmup = time.Hour
	cfg.CheckInterval = time.Millisecond

	m := New(tr, cfg, func(string) { calls.Add(1) }, testLogger(), nowFn)

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	if got := m.Phase(); got != PhaseWarmup {
		t.Errorf("Phase() = %v, want %v", got, PhaseWarmup)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("shutdown invoked %d times during warmup, want 0", got)
	}

	cancel()
	<-m.Done()
}

func TestMonitor_InterruptSharesShutdownPath(t *testing.T) {
	tr := liveness.NewTracker(nil)

	reasons := make(chan string, 1)
	cfg := testConfig()
	cfg.Warmup = time.Hour // interrupt must work even during warmup

	m := New(tr, cfg, func(reason string) { reasons <- reason }, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	cancel()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not exit on context cancellation")
	}

	select {
	case reason := <-reasons:
		if reason != "interrupt received" {
			t.Errorf("reason = %q, want %q", reason, "interrupt received")
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown callback was not invoked on interrupt")
	}

	if !tr.Snapshot().Terminated {
		t.Error("interrupt should latch termination in the tracker")
	}
}

func TestForceTerminate_Idempotent(t *testing.T) {
	tr := liveness.NewTracker(nil)

	var calls atomic.Int32
	doneCalling := make(chan struct{})
	m := New(tr, testConfig(), func(string) {
		calls.Add(1)
		select {
		case <-doneCalling:
		default:
			close(doneCalling)
		}
	}, testLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.ForceTerminate("tab closed")
		}()
	}
	wg.Wait()

	select {
	case <-doneCalling:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback never ran")
	}
	// give any duplicate goroutines a moment to surface
	time.Sleep(20 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("shutdown invoked %d times, want exactly 1", got)
	}
	if got := m.Phase(); got != PhaseTerminating {
		t.Errorf("Phase() = %v, want %v", got, PhaseTerminating)
	}
}

func TestMonitor_ReloadClearsPendingAndKeepsRunning(t *testing.T) {
	clock := struct {
		mu  sync.Mutex
		now time.Time
	}{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	nowFn := func() time.Time {
		clock.mu.Lock()
		defer clock.mu.Unlock()
		return clock.now
	}
	advance := func(d time.Duration) {
		clock.mu.Lock()
		clock.now = clock.now.Add(d)
		clock.mu.Unlock()
	}

	tr := liveness.NewTracker(nowFn)

	var calls atomic.Int32
	cfg := testConfig()
	cfg.CheckInterval = 5 * time.Millisecond

	m := New(tr, cfg, func(string) { calls.Add(1) }, testLogger(), nowFn)

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	// notice at t+10, heartbeat at t+11: the reload case
	advance(10 * time.Second)
	tr.DepartureNotice()
	advance(time.Second)
	tr.Heartbeat()
	advance(time.Second)

	// let several evaluations run at virtual t+12
	time.Sleep(50 * time.Millisecond)

	snap := tr.Snapshot()
	if snap.DeparturePending {
		t.Error("departure should have been resolved as a reload")
	}
	if got := m.Phase(); got != PhaseMonitoring {
		t.Errorf("Phase() = %v, want %v", got, PhaseMonitoring)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("shutdown invoked %d times after a reload, want 0", got)
	}

	cancel()
	<-m.Done()
}
