package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomato-sh/tomato/internal/liveness"
	"github.com/tomato-sh/tomato/internal/metrics"
	"github.com/tomato-sh/tomato/internal/netutil"
)

const (
	// shutdownTimeout bounds how long in-flight requests may delay the
	// listener from closing once shutdown is triggered.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Tomato"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Config collects the collaborators and settings for a [Server].
type Config struct {
	// Tracker receives heartbeat and departure events from the handlers.
	Tracker *liveness.Tracker

	// Port is the preferred listen port; nearby ports are probed if it is
	// busy, and 0 requests an OS-assigned ephemeral port.
	Port int

	// Assets is the embedded filesystem containing the timer page under
	// "assets/". May be nil, in which case only the API routes are served.
	Assets fs.FS

	// Title is substituted into the timer page. Defaults to "Tomato".
	Title string

	// SessionID identifies this server run in /api/status responses.
	SessionID string

	// Phase reports the watchdog phase for /api/status. May be nil.
	Phase func() string

	// OnFatal is called when the listener fails while serving. May be nil.
	OnFatal func(error)

	// Logger receives server events.
	Logger *slog.Logger
}

// Server handles HTTP requests for the timer page and the liveness protocol.
//
// The server is not started until [Server.Start] is called, and it keeps
// serving until [Server.Shutdown]. It never initiates shutdown on its own;
// the watchdog owns that decision.
type Server struct {
	cfg        Config
	httpServer *http.Server
	stopped    chan struct{}
}

// New creates a new HTTP [Server] from cfg.
func New(cfg Config) *Server {
	return &Server{
		cfg:     cfg,
		stopped: make(chan struct{}),
	}
}

// Start binds a local listener and begins serving in a background goroutine.
//
// Start is non-blocking and returns the bound port once the listener is
// confirmed, so bind failures surface synchronously. ctx becomes the base
// context for all request contexts. Listener errors while serving are
// reported through Config.OnFatal rather than returned.
func (s *Server) Start(ctx context.Context) (int, error) {
	ln, port, err := netutil.Listen(s.cfg.Port)
	if err != nil {
		return 0, err
	}

	s.httpServer = &http.Server{
		Handler: s.routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		defer close(s.stopped)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.cfg.Logger.Error("http server error", "error", err)
			if s.cfg.OnFatal != nil {
				s.cfg.OnFatal(err)
			}
		}
	}()

	return port, nil
}

// Shutdown gracefully stops the listener, waiting up to five seconds for
// in-flight requests. Safe to call at most once after Start.
func (s *Server) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Stopped returns a channel that is closed once the serve loop has returned.
func (s *Server) Stopped() <-chan struct{} {
	return s.stopped
}

// routes builds the router. Split out from Start so handler tests can
// exercise the full routing table without a real listener.
func (s *Server) routes() http.Handler {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	r := chi.NewRouter()
	r.Get("/heartbeat", s.handleHeartbeat)
	r.Post("/shutdown", s.handleShutdownNotice)
	r.Get("/shutdown", s.handleShutdownInfo)
	r.Get("/api/status", s.handleStatus)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if s.cfg.Assets != nil {
		r.Get("/", s.handleIndex)
		if sub, err := fs.Sub(s.cfg.Assets, "assets"); err == nil {
			r.Handle("/*", http.FileServer(http.FS(sub)))
		}
	}

	return r
}

// handleHeartbeat records that the tab is alive and acknowledges.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	s.cfg.Tracker.Heartbeat()
	metrics.RecordHeartbeat()
	s.cfg.Logger.Debug("heartbeat received")

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte("ok")); err != nil {
		s.cfg.Logger.Debug("failed to write heartbeat response", "error", err)
	}
}

// handleShutdownNotice records a going-away beacon.
//
// The notice is only recorded; the watchdog decides asynchronously whether
// it was a reload or a real close. Responding success unconditionally is
// deliberate: sendBeacon cannot retry, so the response carries no signal.
func (s *Server) handleShutdownNotice(w http.ResponseWriter, r *http.Request) {
	s.cfg.Tracker.DepartureNotice()
	metrics.RecordDepartureNotice()
	s.cfg.Logger.Debug("departure notice received")

	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("noted")); err != nil {
		s.cfg.Logger.Debug("failed to write shutdown response", "error", err)
	}
}

// handleShutdownInfo answers GET /shutdown without mutating anything, so
// prefetchers and crawlers cannot trigger a departure by accident.
func (s *Server) handleShutdownInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("use POST")); err != nil {
		s.cfg.Logger.Debug("failed to write shutdown info response", "error", err)
	}
}

// statusResponse is the JSON shape of /api/status.
type statusResponse struct {
	SessionID        string    `json:"session_id"`
	Phase            string    `json:"phase"`
	LastHeartbeat    time.Time `json:"last_heartbeat"`
	HeartbeatAgeMs   int64     `json:"heartbeat_age_ms"`
	DeparturePending bool      `json:"departure_pending"`
	Terminated       bool      `json:"terminated"`
}

// handleStatus returns the current session state as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.cfg.Tracker.Snapshot()

	resp := statusResponse{
		SessionID:        s.cfg.SessionID,
		LastHeartbeat:    snap.LastHeartbeat,
		HeartbeatAgeMs:   time.Since(snap.LastHeartbeat).Milliseconds(),
		DeparturePending: snap.DeparturePending,
		Terminated:       snap.Terminated,
	}
	if s.cfg.Phase != nil {
		resp.Phase = s.cfg.Phase()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.cfg.Logger.Error("failed to encode status response", "error", err)
	}
}

// handleIndex serves the timer page with no-cache headers so reloads always
// pick up the current build.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "timer page not found", http.StatusInternalServerError)
		return
	}

	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", fmt.Sprint(len(rendered)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	if _, err := w.Write([]byte(rendered)); err != nil {
		s.cfg.Logger.Error("failed to write timer page", "error", err)
	}
}
