// Package codec implements the fixed-size big-endian wire encoding shared
// by RUDP and KFTP: the 12-byte RUDP header, the RUDP message (header plus
// payload), and the 4-byte KFTP header.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the encoded size of a RudpHeader.
	HeaderSize = 12

	// MaxPayloadSize is the largest encoded RUDP frame, header included.
	MaxPayloadSize = 1024

	// MaxDataSize is the largest payload a single RUDP frame can carry.
	MaxDataSize = MaxPayloadSize - HeaderSize
)

var (
	// ErrBufferTooSmall is returned when an encode target buffer is too
	// small to hold the value being serialized. A short decode source
	// yields ErrTruncated instead.
	ErrBufferTooSmall = errors.New("codec: buffer too small")

	// ErrTruncated is returned when a decode source ends before the full
	// structure described by its header has been read.
	ErrTruncated = errors.New("codec: truncated input")

	// ErrInvalidDataSize is returned when a decoded data_size field falls
	// outside [0, MaxDataSize].
	ErrInvalidDataSize = errors.New("codec: invalid data_size")
)

// RudpHeader is the 12-byte header carried by every RUDP frame.
//
// SeqNum == 0 denotes an ack frame (AckNum names the sequence being
// acknowledged); SeqNum > 0 denotes a data frame carrying DataSize bytes
// of payload immediately following the header.
type RudpHeader struct {
	SeqNum   int32
	AckNum   int32
	DataSize int32
}

// IsAck reports whether this header describes an ack frame.
func (h RudpHeader) IsAck() bool {
	return h.SeqNum == 0
}

// EncodeInt32 writes v into buf[:4] in big-endian order.
func EncodeInt32(v int32, buf []byte) error {
	if len(buf) < 4 {
		return ErrBufferTooSmall
	}
	binary.BigEndian.PutUint32(buf, uint32(v))
	return nil
}

// DecodeInt32 reads a big-endian int32 from buf[:4].
func DecodeInt32(buf []byte) (int32, error) {
	if len(buf) < 4 {
		return 0, ErrTruncated
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

// EncodeHeader serializes h into buf, returning the number of bytes written.
func EncodeHeader(h RudpHeader, buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, ErrBufferTooSmall
	}

	if err := EncodeInt32(h.SeqNum, buf[0:4]); err != nil {
		return 0, err
	}
	if err := EncodeInt32(h.AckNum, buf[4:8]); err != nil {
		return 0, err
	}
	if err := EncodeInt32(h.DataSize, buf[8:12]); err != nil {
		return 0, err
	}

	return HeaderSize, nil
}

// DecodeHeader parses a RudpHeader from the front of buf, returning the
// number of bytes consumed.
func DecodeHeader(buf []byte) (RudpHeader, int, error) {
	if len(buf) < HeaderSize {
		return RudpHeader{}, 0, ErrTruncated
	}

	seq, err := DecodeInt32(buf[0:4])
	if err != nil {
		return RudpHeader{}, 0, err
	}
	ack, err := DecodeInt32(buf[4:8])
	if err != nil {
		return RudpHeader{}, 0, err
	}
	size, err := DecodeInt32(buf[8:12])
	if err != nil {
		return RudpHeader{}, 0, err
	}

	return RudpHeader{SeqNum: seq, AckNum: ack, DataSize: size}, HeaderSize, nil
}

// RudpMessage is a decoded RUDP frame: header plus its payload.
type RudpMessage struct {
	Header  RudpHeader
	Payload []byte
}

// EncodeMessage serializes m (header followed by payload) into buf,
// returning the number of bytes written.
func EncodeMessage(m RudpMessage, buf []byte) (int, error) {
	needed := HeaderSize + len(m.Payload)
	if needed > MaxPayloadSize || int(m.Header.DataSize) != len(m.Payload) {
		return 0, ErrInvalidDataSize
	}
	if len(buf) < needed {
		return 0, ErrBufferTooSmall
	}

	n, err := EncodeHeader(m.Header, buf)
	if err != nil {
		return 0, err
	}

	copy(buf[n:needed], m.Payload)
	return needed, nil
}

// DecodeMessage parses a RudpHeader and its trailing payload out of buf.
// The returned Payload is a freshly allocated copy owned by the caller.
func DecodeMessage(buf []byte) (RudpMessage, int, error) {
	header, n, err := DecodeHeader(buf)
	if err != nil {
		return RudpMessage{}, 0, err
	}

	if header.DataSize < 0 || header.DataSize > MaxDataSize {
		return RudpMessage{}, 0, fmt.Errorf("%w: %d", ErrInvalidDataSize, header.DataSize)
	}

	end := n + int(header.DataSize)
	if len(buf) < end {
		return RudpMessage{}, 0, ErrTruncated
	}

	payload := make([]byte, header.DataSize)
	copy(payload, buf[n:end])

	return RudpMessage{Header: header, Payload: payload}, end, nil
}
