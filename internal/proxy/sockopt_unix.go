//go:build linux || darwin || freebsd

package proxy

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseControl enables SO_REUSEADDR and SO_REUSEPORT so the discovery
// listener can share the well-known port with a game client or another
// proxy instance on the same host.
func reuseControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
