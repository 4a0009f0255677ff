package command

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcarmo/go-uftp/internal/kftp"
	"github.com/rcarmo/go-uftp/internal/logging"
	"github.com/rcarmo/go-uftp/internal/rudp"
)

// DefaultMaxFiles bounds how many directory entries Ls will report.
const DefaultMaxFiles = 100

// ErrShouldExit is returned by Server.Handle after it has sent the exit
// acknowledgement, telling the caller's serve loop to stop.
var ErrShouldExit = errors.New("command: client requested exit")

// Server executes parsed commands against a served directory.
type Server struct {
	Dir      string
	MaxFiles int

	// ProgressReports enables the stderr progress callback during
	// get/put transfers.
	ProgressReports bool
}

// NewServer returns a Server rooted at dir, reporting up to
// DefaultMaxFiles entries from Ls.
func NewServer(dir string) *Server {
	return &Server{Dir: dir, MaxFiles: DefaultMaxFiles}
}

// Handle parses and executes one command line received over conn,
// replying as the protocol dictates. It returns ErrShouldExit once an
// exit command has been acknowledged.
func (s *Server) Handle(conn *rudp.Conn, raw string) error {
	cmd, err := Parse(raw)
	if err != nil {
		return s.reply(conn, "Invalid command: "+raw)
	}

	logging.Info("server: handling %s command from %v", cmd.Kind, conn.Peer)

	switch cmd.Kind {
	case Ls:
		return s.doLs(conn)
	case Exit:
		return s.doExit(conn)
	case Get:
		return s.doGet(conn, cmd.Arg)
	case Put:
		return s.doPut(conn, cmd.Arg)
	case Delete:
		return s.doDelete(conn, cmd.Arg)
	default:
		return s.reply(conn, "Command not yet implemented: "+raw)
	}
}

func (s *Server) reply(conn *rudp.Conn, message string) error {
	if err := conn.Send([]byte(message)); err != nil {
		return fmt.Errorf("command: reply: %w", err)
	}
	return nil
}

func (s *Server) doLs(conn *rudp.Conn) error {
	names, err := s.listFiles()
	if err != nil {
		return s.reply(conn, fmt.Sprintf("Error listing files: %v", err))
	}

	return s.reply(conn, strings.Join(names, "\n"))
}

// listFiles returns the regular files directly inside s.Dir, up to
// s.MaxFiles entries.
func (s *Server) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	maxFiles := s.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	var names []string
	for _, entry := range entries {
		if len(names) == maxFiles {
			logging.Warn("command: directory has more than %d files, truncating ls output", maxFiles)
			break
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("command: stat %s: %v", entry.Name(), err)
			continue
		}
		if info.Mode().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

func (s *Server) doExit(conn *rudp.Conn) error {
	if err := s.reply(conn, "Exiting gracefully"); err != nil {
		return err
	}
	return ErrShouldExit
}

func (s *Server) doGet(conn *rudp.Conn, filename string) error {
	path := s.resolve(filename)

	f, err := os.Open(path)
	if err != nil {
		return s.reply(conn, fmt.Sprintf("Could not open file for reading: %s", filename))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return s.reply(conn, fmt.Sprintf("Could not stat file: %s", filename))
	}

	if err := kftp.SendFile(conn, f, info.Size(), progressFunc(s.ProgressReports)); err != nil {
		return fmt.Errorf("command: send file %s: %w", filename, err)
	}

	return nil
}

func (s *Server) doPut(conn *rudp.Conn, filename string) error {
	path := s.resolve(filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("command: create file %s: %w", filename, err)
	}
	defer f.Close()

	if err := kftp.RecvFile(conn, f, progressFunc(s.ProgressReports)); err != nil {
		return fmt.Errorf("command: receive file %s: %w", filename, err)
	}

	return nil
}

func (s *Server) doDelete(conn *rudp.Conn, filename string) error {
	path := s.resolve(filename)

	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			// The protocol treats deleting a missing file as a silent
			// no-op: nothing is sent back to the client.
			return nil
		}
		return s.reply(conn, fmt.Sprintf("Error deleting file: %s", filename))
	}

	return s.reply(conn, "Deleted file\n")
}

func (s *Server) resolve(filename string) string {
	if s.Dir == "" {
		return filename
	}
	return filepath.Join(s.Dir, filename)
}
