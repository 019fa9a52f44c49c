// Package browser opens a URL in the user's default web browser.
package browser

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// procVersionPath is read to detect WSL; variable for tests.
var procVersionPath = "/proc/version"

// Open launches the default browser at url.
//
// On WSL the Windows browser is used via cmd.exe, since Linux-side browsers
// are usually absent there. The command is started without waiting for it
// to exit; browsers detach immediately anyway.
func Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		if isWSL() {
			// cmd.exe treats & as a command separator; escape it
			cmd = exec.Command("cmd.exe", "/c", "start", strings.ReplaceAll(url, "&", "^&"))
		} else {
			cmd = exec.Command("xdg-open", url)
		}
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// isWSL reports whether the process is running under Windows Subsystem for
// Linux, detected by the kernel version string.
func isWSL() bool {
	data, err := os.ReadFile(procVersionPath)
	if err != nil {
		return false
	}
	return isWSLKernel(data)
}

func isWSLKernel(procVersion []byte) bool {
	return strings.Contains(strings.ToLower(string(procVersion)), "microsoft")
}
