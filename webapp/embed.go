// Package webapp provides the embedded Pomodoro timer web UI.
//
// The HTML, CSS, and JavaScript are included at compile time via Go's embed
// directive, enabling single-binary deployment without external asset files.
// The page contains the client half of the liveness protocol: it sends
// GET /heartbeat periodically and a POST /shutdown beacon when it unloads.
package webapp

import "embed"

// Assets is an embedded filesystem containing the timer web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Timer page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
