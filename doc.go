// Package tomato provides a local, ephemeral Pomodoro timer served over
// HTTP to a single browser tab.
//
// The server's defining behavior is that it terminates itself once its tab
// appears to have gone away. The page sends periodic heartbeats and a
// fire-and-forget "going away" beacon on unload; a watchdog loop reconciles
// the two to tell a page reload apart from a real tab close, and shuts the
// listener down cleanly when the tab is gone or silent for too long.
//
// # Quick Start
//
// Create an App and run it with graceful shutdown:
//
//	app, err := tomato.New(tomato.WithPort(8888))
//	if err != nil {
//	    slog.Error("failed to create app", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	app.Start(ctx) // blocks until the tab goes away or the context is cancelled
//
// Interrupts are delivered into the same shutdown state machine as the
// liveness policy, so there is exactly one termination code path.
//
// # Configuration
//
// The App uses the functional options pattern:
//
//	app, err := tomato.New(
//	    tomato.WithPort(9000),
//	    tomato.WithTitle("Deep Work"),
//	    tomato.WithHeartbeatTimeout(3 * time.Minute),
//	    tomato.WithOpenBrowser(false),
//	)
//
// The tomato CLI (cmd/tomato) wraps the same API with a YAML config file.
package tomato
