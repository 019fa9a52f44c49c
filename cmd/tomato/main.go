// Package main is the entry point for the tomato CLI.
//
// Tomato can be run either as a library (see the root package) or as a
// standalone binary. This CLI provides the standalone binary approach.
//
// Usage:
//
//	tomato serve                 # Start the timer server
//	tomato serve --port 9000     # Use a port for this session only
//	tomato set-port 9000         # Save a default port
//	tomato config                # Show current configuration
//	tomato version               # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "tomato",
	Short: "A local Pomodoro timer that lives and dies with its browser tab",
	Long: `Tomato serves a Pomodoro timer web app on localhost and shuts itself
down automatically once the browser tab is closed.

The page sends periodic heartbeats while it is open and a going-away
beacon when it unloads. Tomato tells a page reload apart from a real
tab close by whether heartbeats resume, so reloading never kills the
server.

Quick start:
  1. Run: tomato serve
  2. A browser tab opens at http://localhost:8888
  3. Close the tab (or press Ctrl+C) to stop the server`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this tomato binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tomato %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
