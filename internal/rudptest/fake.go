// Package rudptest provides an in-memory udp.Endpoint double shared by the
// rudp, kftp, and command packages' tests, so protocol logic can be
// exercised deterministically without real sockets or wall-clock delays.
package rudptest

import (
	"net"
	"sync"
	"time"

	"github.com/rcarmo/go-uftp/internal/transport/udp"
)

// Addr is a trivial net.Addr identifying one end of a connected Endpoint
// pair.
type Addr string

func (a Addr) Network() string { return "fake" }
func (a Addr) String() string  { return string(a) }

type datagram struct {
	payload []byte
	from    Addr
}

// clock is a manually-advanced time source shared by a pair of Endpoints
// so sender/receiver timeout logic runs without real delays. It is
// mutex-guarded since the two ends of a pair typically run on separate
// goroutines in tests.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Unix(0, 0)} }

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Endpoint is an in-memory udp.Endpoint double. Two Endpoints wired
// together with Connect deliver each other's sends through a buffered
// channel and share a fake clock.
type Endpoint struct {
	addr  Addr
	peer  *Endpoint
	inbox chan datagram
	clock *clock

	// DropNext, when > 0, silently discards that many outbound Send calls
	// instead of delivering them, to simulate lost datagrams.
	DropNext int
}

// Connect returns two Endpoints named a and b, wired so that sends on one
// arrive in the other's receive queue.
func Connect(nameA, nameB string) (*Endpoint, *Endpoint) {
	c := newClock()
	a := &Endpoint{addr: Addr(nameA), inbox: make(chan datagram, 256), clock: c}
	b := &Endpoint{addr: Addr(nameB), inbox: make(chan datagram, 256), clock: c}
	a.peer, b.peer = b, a
	return a, b
}

// Send implements udp.Endpoint.
func (e *Endpoint) Send(b []byte, _ net.Addr) error {
	if e.DropNext > 0 {
		e.DropNext--
		return nil
	}

	cp := append([]byte(nil), b...)
	e.peer.inbox <- datagram{payload: cp, from: e.addr}
	return nil
}

// Recv implements udp.Endpoint.
func (e *Endpoint) Recv(buf []byte) (int, net.Addr, error) {
	select {
	case dg := <-e.inbox:
		n := copy(buf, dg.payload)
		return n, dg.from, nil
	default:
		return 0, nil, timeoutError{}
	}
}

// WaitReadable implements udp.Endpoint.
func (e *Endpoint) WaitReadable(timeout time.Duration) (bool, error) {
	select {
	case dg := <-e.inbox:
		e.inbox <- dg // peek: put it back for the subsequent Recv
		return true, nil
	default:
	}

	e.clock.advance(timeout)
	return false, nil
}

// Now implements udp.Endpoint.
func (e *Endpoint) Now() time.Time { return e.clock.Now() }

// Close implements udp.Endpoint.
func (e *Endpoint) Close() error { return nil }

// timeoutError implements net.Error for Recv's empty-inbox case, matching
// the real udp.Endpoint's contract of a Timeout()-true error.
type timeoutError struct{}

func (timeoutError) Error() string   { return "rudptest: recv timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ udp.Endpoint = (*Endpoint)(nil)
