package tomato

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tomato-sh/tomato/internal/browser"
	"github.com/tomato-sh/tomato/internal/liveness"
	"github.com/tomato-sh/tomato/internal/server"
	"github.com/tomato-sh/tomato/internal/watchdog"
	"github.com/tomato-sh/tomato/webapp"
)

const (
	defaultPort             = 8888
	defaultHeartbeatTimeout = 2 * time.Minute
	defaultGracePeriod      = 3 * time.Second
	defaultCheckInterval    = time.Second
	defaultResumeThreshold  = 2 * time.Second

	// browserLaunchDelay gives the listener a moment to settle before the
	// browser fires its first request.
	browserLaunchDelay = 500 * time.Millisecond

	// listenerStopTimeout bounds how long Start waits for the serve loop
	// to wind down after termination latched.
	listenerStopTimeout = 10 * time.Second
)

// App is the composition root for the tomato server.
//
// An App wires together the liveness tracker, the watchdog, and the HTTP
// server; there is no ambient global state. Create one with [New] and run
// it with [App.Start]. The typical lifecycle is:
//
//	app, err := tomato.New()
//	if err != nil {
//	    slog.Error("failed to create app", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	app.Start(ctx) // blocks until shutdown
//
// Cancelling the context delivers an interrupt into the same shutdown
// state machine the liveness policy uses.
type App struct {
	title            string
	port             int
	heartbeatTimeout time.Duration
	gracePeriod      time.Duration
	checkInterval    time.Duration
	warmup           time.Duration
	resumeThreshold  time.Duration
	openBrowser      bool
	assets           fs.FS
	logger           *slog.Logger
	sessionID        string
}

// New creates a new [App] with the given options.
//
// All options have defaults: port 8888, 2 minute heartbeat timeout,
// 3 second grace period, 1 second check interval, warmup equal to the
// heartbeat timeout, and the embedded timer UI. Returns an error if any
// option is invalid or the thresholds are inconsistent with each other.
func New(opts ...Option) (*App, error) {
	cfg := &appConfig{
		port:             defaultPort,
		heartbeatTimeout: defaultHeartbeatTimeout,
		gracePeriod:      defaultGracePeriod,
		checkInterval:    defaultCheckInterval,
		resumeThreshold:  defaultResumeThreshold,
		openBrowser:      true,
		assets:           webapp.Assets,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if !cfg.warmupSet {
		cfg.warmup = cfg.heartbeatTimeout
	}
	if cfg.resumeThreshold >= cfg.gracePeriod {
		return nil, fmt.Errorf("resume threshold (%s) must be shorter than grace period (%s)",
			cfg.resumeThreshold, cfg.gracePeriod)
	}
	if cfg.gracePeriod >= cfg.heartbeatTimeout {
		return nil, fmt.Errorf("grace period (%s) must be shorter than heartbeat timeout (%s)",
			cfg.gracePeriod, cfg.heartbeatTimeout)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		title:            cfg.title,
		port:             cfg.port,
		heartbeatTimeout: cfg.heartbeatTimeout,
		gracePeriod:      cfg.gracePeriod,
		checkInterval:    cfg.checkInterval,
		warmup:           cfg.warmup,
		resumeThreshold:  cfg.resumeThreshold,
		openBrowser:      cfg.openBrowser,
		assets:           cfg.assets,
		logger:           logger,
		sessionID:        uuid.NewString(),
	}, nil
}

// Start runs the server until the tab goes away or ctx is cancelled.
//
// Start is a blocking call. During execution:
//
//   - a local listener is bound, probing past the preferred port if busy
//   - the timer page is served and begins sending heartbeats
//   - the watchdog samples liveness evidence once per check interval
//   - the default browser is opened at the timer URL (unless disabled)
//
// Returns nil on any orderly shutdown: heartbeat timeout, confirmed tab
// close, or interrupt. A listener that fails to bind is the only startup
// error. Listener failures while serving are logged and converge on the
// same termination path.
func (a *App) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	tracker := liveness.NewTracker(nil)

	// mon is assigned below; the server callbacks can only fire once the
	// listener is serving, which happens after the assignment
	var mon *watchdog.Monitor

	srv := server.New(server.Config{
		Tracker:   tracker,
		Port:      a.port,
		Assets:    a.assets,
		Title:     a.title,
		SessionID: a.sessionID,
		Phase: func() string {
			return string(mon.Phase())
		},
		OnFatal: func(err error) {
			mon.ForceTerminate(fmt.Sprintf("listener error: %v", err))
		},
		Logger: a.logger,
	})

	mon = watchdog.New(tracker, watchdog.Config{
		Warmup:           a.warmup,
		CheckInterval:    a.checkInterval,
		HeartbeatTimeout: a.heartbeatTimeout,
		GracePeriod:      a.gracePeriod,
		ResumeThreshold:  a.resumeThreshold,
	}, func(reason string) {
		if err := srv.Shutdown(); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
	}, a.logger, nil)

	port, err := srv.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	a.logger.Info("tomato running", "url", url, "session_id", a.sessionID)
	if a.port != 0 && port != a.port {
		a.logger.Info("preferred port was busy", "preferred", a.port, "using", port)
	}

	go mon.Run(ctx)

	if a.openBrowser {
		go func() {
			time.Sleep(browserLaunchDelay)
			if err := browser.Open(url); err != nil {
				a.logger.Warn("failed to open browser", "url", url, "error", err)
			}
		}()
	}

	<-mon.Done()

	select {
	case <-srv.Stopped():
	case <-time.After(listenerStopTimeout):
		a.logger.Warn("listener did not stop in time", "timeout", listenerStopTimeout.String())
	}

	a.logger.Info("tomato stopped")
	return nil
}

// Title returns the configured timer page title.
func (a *App) Title() string {
	return a.title
}

// Port returns the preferred HTTP port. The bound port may differ when
// the preferred one was busy at startup.
func (a *App) Port() int {
	return a.port
}

// HeartbeatTimeout returns the configured silence threshold.
func (a *App) HeartbeatTimeout() time.Duration {
	return a.heartbeatTimeout
}

// SessionID returns the identifier for this server run.
func (a *App) SessionID() string {
	return a.sessionID
}
