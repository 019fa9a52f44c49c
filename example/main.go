package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomato-sh/tomato"
)

func main() {
	// a short heartbeat timeout so the demo exits quickly after the tab
	// closes; real usage should keep the 2 minute default
	app, err := tomato.New(
		tomato.WithPort(8888),
		tomato.WithTitle("Tomato Demo"),
		tomato.WithHeartbeatTimeout(30*time.Second),
		tomato.WithWarmup(10*time.Second),
	)
	if err != nil {
		slog.Error("failed to create app", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Tomato Demo")
	fmt.Println()
	fmt.Printf("  Timer page: http://localhost:%d\n", app.Port())
	fmt.Println("  Close the tab (or press Ctrl+C) to stop the server.")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
