//go:build windows

package udp

import "syscall"

// reuseAddrControl is a no-op on Windows, where UDP sockets do not suffer
// the TIME_WAIT reuse restriction SO_REUSEADDR works around on unix.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
