// Package netutil handles local listener creation with port fallback.
package netutil

import (
	"fmt"
	"net"
)

// maxProbes is how many consecutive ports to try before falling back to an
// OS-assigned ephemeral port.
const maxProbes = 100

// Listen binds a TCP listener on localhost, starting at the preferred port.
//
// If the preferred port is busy, the next ports (up to 100) are probed in
// order; if all are busy, the OS assigns an ephemeral port. A preferred
// port of 0 skips probing and asks the OS directly. The bound port is
// returned alongside the listener.
func Listen(preferred int) (net.Listener, int, error) {
	if preferred != 0 {
		for port := preferred; port < preferred+maxProbes && port <= 65535; port++ {
			ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				continue
			}
			return ln, port, nil
		}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to bind any local port: %w", err)
	}
	return ln, ln.Addr().(*net.TCPAddr).Port, nil
}
