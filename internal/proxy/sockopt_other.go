//go:build !linux && !darwin && !freebsd

package proxy

import "syscall"

// reuseControl is a no-op where SO_REUSEPORT is unavailable. Binding the
// discovery port may fail if another process already holds it.
func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}
