// Package rudp implements RUDP, a stop-and-wait reliable-delivery protocol
// layered over an unreliable datagram Endpoint. A sender retransmits a
// chunk until its sequence number is acknowledged or a sender-side timeout
// expires; a receiver discards duplicates and re-acks messages it has
// already delivered so a lost ack does not wedge the sender.
package rudp

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rcarmo/go-uftp/internal/codec"
	"github.com/rcarmo/go-uftp/internal/logging"
	"github.com/rcarmo/go-uftp/internal/transport/udp"
)

const (
	// DefaultMessageTimeout is how long a chunk send waits for an ack
	// before retransmitting.
	DefaultMessageTimeout = 200 * time.Millisecond

	// DefaultSenderTimeout is the total time a chunk send may spend
	// retrying before giving up.
	DefaultSenderTimeout = 5000 * time.Millisecond

	// AckWindow bounds how far behind the receiver's last delivered
	// sequence number an incoming sequence number may be and still be
	// considered a stale message worth re-acking.
	AckWindow = 100

	// emptyAckNum is the ack_num carried by data frames, which do not ack
	// anything themselves.
	emptyAckNum = 0

	// recvPollInterval bounds each WaitReadable call inside Recv. Recv
	// itself has no deadline: it keeps polling until an in-order message
	// arrives or WaitReadable returns an error.
	recvPollInterval = time.Second
)

// ErrPayloadTooLarge is returned when a single chunk handed to sendChunk
// exceeds codec.MaxDataSize.
var ErrPayloadTooLarge = errors.New("rudp: payload too large")

// ErrSenderTimeout is returned when a chunk goes unacknowledged for longer
// than the sender's configured timeout.
var ErrSenderTimeout = errors.New("rudp: sender timed out waiting for ack")

// Sender tracks one peer's outbound sequence state and retry timing.
type Sender struct {
	LastAck        int32
	MessageTimeout time.Duration
	SenderTimeout  time.Duration
}

// NewSender returns a Sender configured with the given retry timings,
// falling back to the package defaults for any zero duration.
func NewSender(messageTimeout, senderTimeout time.Duration) *Sender {
	if messageTimeout <= 0 {
		messageTimeout = DefaultMessageTimeout
	}
	if senderTimeout <= 0 {
		senderTimeout = DefaultSenderTimeout
	}
	return &Sender{MessageTimeout: messageTimeout, SenderTimeout: senderTimeout}
}

// Receiver tracks one peer's inbound sequence state.
type Receiver struct {
	LastReceived int32
}

// NewReceiver returns a freshly initialized Receiver.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Conn bundles a datagram Endpoint with one peer's send/receive state,
// giving callers a single handle for a logical RUDP session instead of
// threading the Endpoint, Sender, and Receiver through separately.
//
// Peer may be nil when the Endpoint is already connected to a single
// remote address (the client side), or when the Conn is a freshly
// constructed server-side handle that has not yet received its first
// datagram; Recv fills it in from whichever address the datagram arrived
// from.
type Conn struct {
	Endpoint udp.Endpoint
	Peer     net.Addr
	Sender   *Sender
	Receiver *Receiver
}

// NewConn wraps an Endpoint and peer state into a Conn.
func NewConn(ep udp.Endpoint, peer net.Addr, sender *Sender, receiver *Receiver) *Conn {
	return &Conn{Endpoint: ep, Peer: peer, Sender: sender, Receiver: receiver}
}

// Send reliably delivers data to c.Peer.
func (c *Conn) Send(data []byte) error {
	return Send(c.Endpoint, c.Peer, data, c.Sender, c.Receiver)
}

// Recv blocks for the next in-order message and records its sender as
// c.Peer.
func (c *Conn) Recv() ([]byte, error) {
	payload, peer, err := Recv(c.Endpoint, c.Receiver)
	if err != nil {
		return nil, err
	}
	c.Peer = peer
	return payload, nil
}

// CheckAcks drains any straggler acks owed to c.Peer.
func (c *Conn) CheckAcks() (int, error) {
	return CheckAcks(c.Endpoint, c.Peer, c.Receiver)
}

// inOldAckWindow reports whether header describes a data frame the
// receiver has already delivered (at most AckWindow-1 sequence numbers
// behind LastReceived), and so is owed a repeat ack rather than a fresh
// delivery. The next expected sequence number is not in the window.
func inOldAckWindow(header codec.RudpHeader, receiver *Receiver) bool {
	if header.SeqNum == 0 {
		return false
	}
	diff := receiver.LastReceived - header.SeqNum
	return diff >= 0 && diff < AckWindow
}

// sendAck fires an unreliable ack for seqNum to peer. Acks are best-effort:
// a dropped ack is recovered by the old-ack-window mechanism above, so
// sendAck does not retry.
func sendAck(ep udp.Endpoint, peer net.Addr, seqNum int32) error {
	msg := codec.RudpMessage{Header: codec.RudpHeader{SeqNum: 0, AckNum: seqNum, DataSize: 0}}

	buf := make([]byte, codec.HeaderSize)
	n, err := codec.EncodeMessage(msg, buf)
	if err != nil {
		return fmt.Errorf("rudp: encode ack: %w", err)
	}

	return ep.Send(buf[:n], peer)
}

// Send fragments data into codec.MaxDataSize chunks and reliably delivers
// each in turn to peer, advancing sender's sequence number as each chunk is
// acknowledged.
func Send(ep udp.Endpoint, peer net.Addr, data []byte, sender *Sender, receiver *Receiver) error {
	if len(data) == 0 {
		return sendChunk(ep, peer, nil, sender, receiver)
	}

	for offset := 0; offset < len(data); {
		end := offset + codec.MaxDataSize
		if end > len(data) {
			end = len(data)
		}

		if err := sendChunk(ep, peer, data[offset:end], sender, receiver); err != nil {
			return fmt.Errorf("rudp: send chunk at offset %d: %w", offset, err)
		}

		offset = end
	}

	return nil
}

// sendChunk reliably delivers a single chunk (at most codec.MaxDataSize
// bytes), retransmitting on sender.MessageTimeout until it is acked or
// sender.SenderTimeout elapses.
func sendChunk(ep udp.Endpoint, peer net.Addr, chunk []byte, sender *Sender, receiver *Receiver) error {
	if len(chunk) > codec.MaxDataSize {
		return ErrPayloadTooLarge
	}

	seqNum := sender.LastAck + 1
	msg := codec.RudpMessage{
		Header:  codec.RudpHeader{SeqNum: seqNum, AckNum: emptyAckNum, DataSize: int32(len(chunk))},
		Payload: chunk,
	}

	wire := make([]byte, codec.MaxPayloadSize)
	wireLen, err := codec.EncodeMessage(msg, wire)
	if err != nil {
		return fmt.Errorf("rudp: encode chunk: %w", err)
	}
	wire = wire[:wireLen]

	start := ep.Now()
	recvBuf := make([]byte, codec.MaxPayloadSize)

	for {
		if ep.Now().Sub(start) > sender.SenderTimeout {
			return ErrSenderTimeout
		}

		if err := ep.Send(wire, peer); err != nil {
			logging.Warn("rudp: send error, retrying: %v", err)
			continue
		}

		ready, err := ep.WaitReadable(sender.MessageTimeout)
		if err != nil {
			logging.Warn("rudp: wait error, retrying: %v", err)
			continue
		}
		if !ready {
			continue // message_timeout elapsed, retransmit
		}

		n, _, err := ep.Recv(recvBuf)
		if err != nil {
			logging.Warn("rudp: recv error, retrying: %v", err)
			continue
		}

		received, _, err := codec.DecodeMessage(recvBuf[:n])
		if err != nil {
			logging.Debug("rudp: discarding undecodable datagram: %v", err)
			continue
		}

		switch {
		case received.Header.AckNum == seqNum:
			sender.LastAck = seqNum
			return nil
		case inOldAckWindow(received.Header, receiver):
			if err := sendAck(ep, peer, received.Header.SeqNum); err != nil {
				logging.Warn("rudp: error re-acking stale message: %v", err)
			}
		}
	}
}

// Recv blocks until the next in-order data chunk arrives from peer,
// acking it (and any stale retransmissions it sees along the way) and
// returning its payload.
func Recv(ep udp.Endpoint, receiver *Receiver) ([]byte, net.Addr, error) {
	buf := make([]byte, codec.MaxPayloadSize)

	for {
		ready, err := ep.WaitReadable(recvPollInterval)
		if err != nil {
			return nil, nil, fmt.Errorf("rudp: wait readable: %w", err)
		}
		if !ready {
			continue
		}

		n, peer, err := ep.Recv(buf)
		if err != nil {
			logging.Warn("rudp: recv error, ignoring: %v", err)
			continue
		}

		received, _, err := codec.DecodeMessage(buf[:n])
		if err != nil {
			logging.Debug("rudp: discarding undecodable datagram: %v", err)
			continue
		}

		if received.Header.SeqNum != receiver.LastReceived+1 && !inOldAckWindow(received.Header, receiver) {
			continue
		}

		if err := sendAck(ep, peer, received.Header.SeqNum); err != nil {
			logging.Warn("rudp: error acking message: %v", err)
		}

		if received.Header.SeqNum == receiver.LastReceived+1 {
			receiver.LastReceived++
			return received.Payload, peer, nil
		}
		// Stale retransmission: already acked above, keep waiting for the
		// message we actually need next.
	}
}

// CheckAcks drains any straggler acks waiting on ep, re-acking the stale
// messages they represent. It returns the number handled and stops at the
// first datagram that is not a stale in-window message, or once
// DefaultMessageTimeout passes with nothing arriving.
func CheckAcks(ep udp.Endpoint, peer net.Addr, receiver *Receiver) (int, error) {
	buf := make([]byte, codec.MaxPayloadSize)
	handled := 0

	for {
		ready, err := ep.WaitReadable(DefaultMessageTimeout)
		if err != nil {
			return handled, fmt.Errorf("rudp: wait readable: %w", err)
		}
		if !ready {
			return handled, nil
		}

		n, from, err := ep.Recv(buf)
		if err != nil {
			logging.Warn("rudp: recv error in CheckAcks, ignoring: %v", err)
			continue
		}

		received, _, err := codec.DecodeMessage(buf[:n])
		if err != nil {
			logging.Debug("rudp: discarding undecodable datagram in CheckAcks: %v", err)
			continue
		}

		if !inOldAckWindow(received.Header, receiver) {
			return handled, nil
		}

		ackPeer := peer
		if ackPeer == nil {
			ackPeer = from
		}

		if err := sendAck(ep, ackPeer, received.Header.SeqNum); err != nil {
			return handled, fmt.Errorf("rudp: ack in CheckAcks: %w", err)
		}

		handled++
	}
}
