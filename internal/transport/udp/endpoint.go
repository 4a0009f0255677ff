// Package udp implements the abstract datagram endpoint the RUDP engine
// runs on: non-blocking send/receive with a wait-for-readable primitive and
// a wall-clock source, backed by the operating system's UDP sockets.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Endpoint is the capability set the RUDP engine requires from a datagram
// transport. Reads and writes are non-blocking: all blocking is
// externalized to WaitReadable.
type Endpoint interface {
	// Send transmits b to peer. peer is nil on a connected (client)
	// endpoint, where the single remote address is implicit.
	Send(b []byte, peer net.Addr) error

	// Recv reads one datagram into buf, returning the number of bytes
	// written and the sender's address. It returns a timeout error
	// (net.Error with Timeout() true) if no datagram is queued.
	Recv(buf []byte) (n int, peer net.Addr, err error)

	// WaitReadable blocks up to timeout for a datagram to arrive. It
	// returns true if one is ready for Recv, false on timeout.
	WaitReadable(timeout time.Duration) (bool, error)

	// Now returns the current wall-clock time.
	Now() time.Time

	// Close releases the underlying socket.
	Close() error
}

// ErrClosed is returned by operations on a closed Endpoint.
var ErrClosed = errors.New("udp: endpoint closed")

// datagram is a whole UDP packet buffered by WaitReadable until the next
// Recv call consumes it.
type datagram struct {
	payload []byte
	peer    net.Addr
}

// UDPEndpoint is an Endpoint backed by a single *net.UDPConn, usable both
// connected (client, one peer implied by Dial) and unconnected (server,
// peer supplied per-call).
type UDPEndpoint struct {
	conn      *net.UDPConn
	connected bool
	pending   *datagram
}

// Listen binds a UDPEndpoint to host on port, for server use. An empty
// host binds all interfaces. The underlying socket is opened with
// SO_REUSEADDR so a restarted server does not have to wait out the
// previous socket's TIME_WAIT period, the same guarantee the original
// server obtained via setsockopt.
func Listen(ctx context.Context, host string, port int) (*UDPEndpoint, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}

	pc, err := lc.ListenPacket(ctx, "udp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, fmt.Errorf("udp: listen: %w", err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, errors.New("udp: unexpected packet conn type")
	}

	return &UDPEndpoint{conn: conn}, nil
}

// Dial connects a UDPEndpoint to hostname:port, for client use.
func Dial(ctx context.Context, hostname string, port int) (*UDPEndpoint, error) {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", hostname, port))
	if err != nil {
		return nil, fmt.Errorf("udp: resolve %s: %w", hostname, err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", raddr.String())
	if err != nil {
		return nil, fmt.Errorf("udp: dial: %w", err)
	}

	return &UDPEndpoint{conn: conn.(*net.UDPConn), connected: true}, nil
}

// Send implements Endpoint.
func (e *UDPEndpoint) Send(b []byte, peer net.Addr) error {
	if e.connected || peer == nil {
		_, err := e.conn.Write(b)
		return err
	}

	udpPeer, ok := peer.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("udp: peer is not a *net.UDPAddr: %T", peer)
	}

	_, err := e.conn.WriteToUDP(b, udpPeer)
	return err
}

// Recv implements Endpoint. A datagram already buffered by a prior
// WaitReadable call is served first; otherwise it attempts a single
// immediately-expiring read.
func (e *UDPEndpoint) Recv(buf []byte) (int, net.Addr, error) {
	if e.pending != nil {
		n := copy(buf, e.pending.payload)
		peer := e.pending.peer
		e.pending = nil
		return n, peer, nil
	}

	if err := e.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, nil, err
	}

	return e.conn.ReadFrom(buf)
}

// WaitReadable implements Endpoint. It blocks on the socket up to timeout
// and, if a datagram arrives, buffers it whole for the next Recv call so
// no bytes are lost to a short peek read.
func (e *UDPEndpoint) WaitReadable(timeout time.Duration) (bool, error) {
	if e.pending != nil {
		return true, nil
	}

	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, err
	}

	buf := make([]byte, 65535)
	n, peer, err := e.conn.ReadFrom(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return false, nil
		}
		return false, err
	}

	e.pending = &datagram{payload: buf[:n], peer: peer}
	return true, nil
}

// Now implements Endpoint.
func (e *UDPEndpoint) Now() time.Time {
	return time.Now()
}

// Close implements Endpoint.
func (e *UDPEndpoint) Close() error {
	return e.conn.Close()
}
