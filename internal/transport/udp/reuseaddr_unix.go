//go:build unix

package udp

import "syscall"

// reuseAddrControl sets SO_REUSEADDR on the listening socket before bind,
// matching the original server's setsockopt(SO_REUSEADDR) call. It relies
// on the standard library's syscall package directly: socket options are
// inherently OS-syscall-level, and no example in the reference corpus
// pulls in a dedicated sockopt library for this.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var setErr error
	err := c.Control(func(fd uintptr) {
		setErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return setErr
}
