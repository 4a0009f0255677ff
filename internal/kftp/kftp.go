// Package kftp implements a streaming file-transfer layer on top of an
// RUDP connection: a 4-byte file-size header is prefixed to the first
// RUDP payload of a transfer, and the remaining file bytes follow as plain
// RUDP messages, so neither side ever buffers a whole file in memory.
package kftp

import (
	"errors"
	"fmt"
	"io"

	"github.com/rcarmo/go-uftp/internal/codec"
	"github.com/rcarmo/go-uftp/internal/logging"
	"github.com/rcarmo/go-uftp/internal/rudp"
)

// ErrShortRead is returned by SendFile when fewer bytes than size could be
// read from r before EOF.
var ErrShortRead = errors.New("kftp: file shorter than declared size")

// ProgressFunc is invoked as a transfer advances, with the number of bytes
// moved so far and the total transfer size. A nil ProgressFunc disables
// progress reporting.
type ProgressFunc func(sent, total int64)

// SendFile streams size bytes read from r to conn.Peer, prefixing the
// first RUDP message with the KFTP header.
func SendFile(conn *rudp.Conn, r io.Reader, size int64, progress ProgressFunc) error {
	firstChunkCap := codec.MaxDataSize - codec.KftpHeaderSize
	if firstChunkCap < 0 {
		return fmt.Errorf("kftp: MaxDataSize too small for header")
	}

	buf := make([]byte, codec.MaxDataSize)

	n, err := codec.EncodeKftpHeader(codec.KftpHeader{FileSize: int32(size)}, buf)
	if err != nil {
		return fmt.Errorf("kftp: encode header: %w", err)
	}

	firstRead := firstChunkCap
	if int64(firstRead) > size {
		firstRead = int(size)
	}

	read, err := io.ReadFull(r, buf[n:n+firstRead])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("kftp: reading first chunk: %w", err)
	}

	sent := int64(read)

	if err := conn.Send(buf[:n+read]); err != nil {
		return fmt.Errorf("kftp: send first chunk: %w", err)
	}
	reportProgress(progress, sent, size)

	for sent < size {
		chunkSize := int64(codec.MaxDataSize)
		if remaining := size - sent; remaining < chunkSize {
			chunkSize = remaining
		}

		read, err := io.ReadFull(r, buf[:chunkSize])
		if err != nil {
			return fmt.Errorf("kftp: %w: %v", ErrShortRead, err)
		}

		if err := conn.Send(buf[:read]); err != nil {
			return fmt.Errorf("kftp: send chunk at offset %d: %w", sent, err)
		}

		sent += int64(read)
		reportProgress(progress, sent, size)
	}

	return nil
}

// RecvFile receives a file transfer from conn.Peer, writing bytes to w as
// they arrive.
func RecvFile(conn *rudp.Conn, w io.Writer, progress ProgressFunc) error {
	payload, err := conn.Recv()
	if err != nil {
		return fmt.Errorf("kftp: recv header chunk: %w", err)
	}

	header, n, err := codec.DecodeKftpHeader(payload)
	if err != nil {
		return fmt.Errorf("kftp: decode header: %w", err)
	}

	total := int64(header.FileSize)
	received := int64(len(payload) - n)

	if received > 0 {
		if _, err := w.Write(payload[n:]); err != nil {
			return fmt.Errorf("kftp: write first chunk: %w", err)
		}
	}
	reportProgress(progress, received, total)

	for received < total {
		payload, err := conn.Recv()
		if err != nil {
			return fmt.Errorf("kftp: recv chunk at offset %d: %w", received, err)
		}

		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("kftp: write chunk at offset %d: %w", received, err)
		}

		received += int64(len(payload))
		reportProgress(progress, received, total)
	}

	if received != total {
		logging.Warn("kftp: received %d bytes, expected %d", received, total)
	}

	return nil
}

func reportProgress(progress ProgressFunc, done, total int64) {
	if progress != nil {
		progress(done, total)
	}
}
