package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-uftp/internal/rudp"
	"github.com/rcarmo/go-uftp/internal/rudptest"
)

func newServerConn(nameA, nameB string) (client, server *rudp.Conn) {
	a, b := rudptest.Connect(nameA, nameB)
	client = &rudp.Conn{Endpoint: a, Sender: rudp.NewSender(0, 0), Receiver: rudp.NewReceiver()}
	server = &rudp.Conn{Endpoint: b, Sender: rudp.NewSender(0, 0), Receiver: rudp.NewReceiver()}
	return client, server
}

func TestServerHandleInvalidCommand(t *testing.T) {
	client, server := newServerConn("client", "server")
	s := NewServer(t.TempDir())

	go func() { require.NoError(t, s.Handle(server, "frobnicate")) }()

	resp, err := client.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Invalid command: frobnicate", string(resp))
}

func TestServerHandleLs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	client, server := newServerConn("client", "server")
	s := NewServer(dir)

	go func() { require.NoError(t, s.Handle(server, "ls")) }()

	resp, err := client.Recv()
	require.NoError(t, err)
	assert.Contains(t, string(resp), "a.txt")
	assert.Contains(t, string(resp), "b.txt")
	assert.NotContains(t, string(resp), "subdir")
}

func TestServerHandleExit(t *testing.T) {
	client, server := newServerConn("client", "server")
	s := NewServer(t.TempDir())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Handle(server, "exit") }()

	resp, err := client.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Exiting gracefully", string(resp))

	assert.ErrorIs(t, <-errCh, ErrShouldExit)
}

func TestServerHandleGetMissingFile(t *testing.T) {
	client, server := newServerConn("client", "server")
	s := NewServer(t.TempDir())

	go func() { require.NoError(t, s.Handle(server, "get missing.txt")) }()

	resp, err := client.Recv()
	require.NoError(t, err)
	assert.Contains(t, string(resp), "Could not open file for reading")
}

func TestServerHandleDeleteMissingFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	client, server := newServerConn("client", "server")
	s := NewServer(dir)

	done := make(chan struct{})
	go func() {
		require.NoError(t, s.Handle(server, "delete missing.txt"))
		close(done)
	}()

	<-done

	// No response should have been sent; confirm nothing is queued.
	ready, err := client.Endpoint.WaitReadable(0)
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestServerHandleDeleteExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	client, server := newServerConn("client", "server")
	s := NewServer(dir)

	go func() { require.NoError(t, s.Handle(server, "delete doomed.txt")) }()

	resp, err := client.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Deleted file\n", string(resp))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
