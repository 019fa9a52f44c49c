package tomato

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"
)

// appConfig holds mutable state during App construction.
type appConfig struct {
	title            string
	port             int
	heartbeatTimeout time.Duration
	gracePeriod      time.Duration
	checkInterval    time.Duration
	warmup           time.Duration
	warmupSet        bool
	resumeThreshold  time.Duration
	openBrowser      bool
	assets           fs.FS
	logger           *slog.Logger
}

// Option is a function that configures an [App] during construction.
//
// Option implements the functional options pattern. Options return an
// error if validation fails.
type Option func(*appConfig) error

// WithTitle sets the timer page title. Defaults to "Tomato".
func WithTitle(title string) Option {
	return func(cfg *appConfig) error {
		cfg.title = title
		return nil
	}
}

// WithPort sets the preferred HTTP port.
//
// If the port is busy, nearby ports are probed; 0 requests an OS-assigned
// ephemeral port. Defaults to 8888.
func WithPort(port int) Option {
	return func(cfg *appConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHeartbeatTimeout sets how long the tab may stay silent before the
// server concludes it is gone and shuts down.
//
// Defaults to 2 minutes. Browsers throttle timers aggressively in
// backgrounded tabs, so values much below a minute will shut the server
// down under a perfectly healthy idle tab.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("heartbeat timeout must be positive")
		}
		cfg.heartbeatTimeout = d
		return nil
	}
}

// WithGracePeriod sets how long after a going-away notice to wait for
// heartbeats to resume before treating the notice as a real tab close.
// Defaults to 3 seconds.
func WithGracePeriod(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("grace period must be positive")
		}
		cfg.gracePeriod = d
		return nil
	}
}

// WithCheckInterval sets the period of the watchdog evaluation loop.
// Defaults to 1 second.
func WithCheckInterval(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("check interval must be positive")
		}
		cfg.checkInterval = d
		return nil
	}
}

// WithWarmup sets the initial window during which no shutdown decisions
// are made, giving the browser time to load the page and send its first
// heartbeat. Defaults to the heartbeat timeout.
func WithWarmup(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d < 0 {
			return errors.New("warmup must not be negative")
		}
		cfg.warmup = d
		cfg.warmupSet = true
		return nil
	}
}

// WithResumeThreshold sets the window after a going-away notice within
// which a fresh heartbeat reclassifies the notice as a page reload.
// Defaults to 2 seconds and must stay shorter than the grace period.
func WithResumeThreshold(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("resume threshold must be positive")
		}
		cfg.resumeThreshold = d
		return nil
	}
}

// WithOpenBrowser controls whether the default browser is launched at the
// timer URL on startup. Defaults to true.
func WithOpenBrowser(open bool) Option {
	return func(cfg *appConfig) error {
		cfg.openBrowser = open
		return nil
	}
}

// WithAssets overrides the embedded web UI with a custom filesystem. The
// filesystem must contain `assets/index.html`.
func WithAssets(assets fs.FS) Option {
	return func(cfg *appConfig) error {
		if assets == nil {
			return errors.New("assets filesystem must not be nil")
		}
		cfg.assets = assets
		return nil
	}
}

// WithLogger sets the logger used by the server and the watchdog.
// Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		cfg.logger = logger
		return nil
	}
}
