package command

import (
	"fmt"
	"os"

	"github.com/rcarmo/go-uftp/internal/kftp"
	"github.com/rcarmo/go-uftp/internal/logging"
	"github.com/rcarmo/go-uftp/internal/rudp"
)

// Client drives one interactive command against a connected server.
type Client struct {
	Conn *rudp.Conn

	// ProgressReports enables the stderr progress callback during
	// get/put transfers.
	ProgressReports bool
}

// NewClient wraps an established rudp.Conn for command execution.
func NewClient(conn *rudp.Conn) *Client {
	return &Client{Conn: conn}
}

// Execute parses and runs a single command line, returning the text to
// display to the user and whether the client should now terminate.
//
// A malformed command is handled entirely locally and never contacts the
// server, matching how an interactive shell rejects garbage input before
// it is ever sent anywhere.
func (c *Client) Execute(raw string) (output string, shouldExit bool, err error) {
	cmd, parseErr := Parse(raw)
	if parseErr != nil {
		return "Invalid command: " + raw, false, nil
	}

	switch cmd.Kind {
	case Ls:
		output, err = c.doLs()
	case Exit:
		output, err = c.doExit()
		shouldExit = true
	case Get:
		output, err = c.doGet(cmd.Arg)
	case Put:
		output, err = c.doPut(cmd.Arg)
	case Delete:
		output, err = c.doDelete(cmd.Arg)
	}

	if err != nil {
		return "", shouldExit, err
	}

	if !shouldExit {
		// Acks to the server can be lost, so a task can finish locally
		// without the server ever learning it succeeded. Drain any
		// straggler acks before considering the command complete.
		if _, ackErr := c.Conn.CheckAcks(); ackErr != nil {
			logging.Warn("command: error checking for straggler acks: %v", ackErr)
		}
	}

	return output, shouldExit, nil
}

func (c *Client) sendAndRecv(command string) (string, error) {
	if err := c.Conn.Send([]byte(command)); err != nil {
		return "", fmt.Errorf("command: send %q: %w", command, err)
	}

	resp, err := c.Conn.Recv()
	if err != nil {
		return "", fmt.Errorf("command: recv response to %q: %w", command, err)
	}

	return string(resp), nil
}

func (c *Client) doLs() (string, error) {
	return c.sendAndRecv("ls")
}

func (c *Client) doExit() (string, error) {
	return c.sendAndRecv("exit")
}

func (c *Client) doGet(filename string) (string, error) {
	if err := c.Conn.Send([]byte("get " + filename)); err != nil {
		return "", fmt.Errorf("command: send get %s: %w", filename, err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("command: open %s for writing: %w", filename, err)
	}
	defer f.Close()

	if err := kftp.RecvFile(c.Conn, f, progressFunc(c.ProgressReports)); err != nil {
		return "", fmt.Errorf("command: download %s: %w", filename, err)
	}

	return "Downloaded file: " + filename, nil
}

func (c *Client) doPut(filename string) (string, error) {
	if err := c.Conn.Send([]byte("put " + filename)); err != nil {
		return "", fmt.Errorf("command: send put %s: %w", filename, err)
	}

	f, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("command: open %s for reading: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("command: stat %s: %w", filename, err)
	}

	if err := kftp.SendFile(c.Conn, f, info.Size(), progressFunc(c.ProgressReports)); err != nil {
		return "", fmt.Errorf("command: upload %s: %w", filename, err)
	}

	return "Sent file: " + filename, nil
}

func (c *Client) doDelete(filename string) (string, error) {
	return c.sendAndRecv("delete " + filename)
}
