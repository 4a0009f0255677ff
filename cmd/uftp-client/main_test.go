package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-uftp/internal/command"
	"github.com/rcarmo/go-uftp/internal/rudp"
	"github.com/rcarmo/go-uftp/internal/rudptest"
)

func TestParseFlagsWithArgs(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   parsedArgs
		action string
	}{
		{
			name: "hostname and port",
			args: []string{"localhost", "9090"},
			want: parsedArgs{hostname: "localhost", port: "9090"},
		},
		{
			name: "with log level",
			args: []string{"-log-level", "debug", "localhost", "9090"},
			want: parsedArgs{hostname: "localhost", port: "9090", logLevel: "debug"},
		},
		{
			name:   "help",
			args:   []string{"-help"},
			want:   parsedArgs{},
			action: "help",
		},
		{
			name:   "version",
			args:   []string{"-version"},
			want:   parsedArgs{},
			action: "version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, action := parseFlagsWithArgs(tt.args)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestRunRejectsMissingHostnameOrPort(t *testing.T) {
	err := run(parsedArgs{})
	assert.Error(t, err)
}

func TestInteractExitsOnExitCommand(t *testing.T) {
	clientEp, serverEp := rudptest.Connect("client", "server")
	clientConn := &rudp.Conn{Endpoint: clientEp, Sender: rudp.NewSender(0, 0), Receiver: rudp.NewReceiver()}
	client := command.NewClient(clientConn)

	serverConn := &rudp.Conn{Endpoint: serverEp, Sender: rudp.NewSender(0, 0), Receiver: rudp.NewReceiver()}
	srv := command.NewServer(t.TempDir())

	errCh := make(chan error, 1)
	go func() {
		raw, err := serverConn.Recv()
		if err != nil {
			errCh <- err
			return
		}
		errCh <- srv.Handle(serverConn, string(raw))
	}()

	in, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	_, err = in.WriteString("exit\n")
	require.NoError(t, err)
	_, err = in.Seek(0, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	outFile, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)

	require.NoError(t, interact(client, in, outFile))
	require.ErrorIs(t, <-errCh, command.ErrShouldExit)

	_, err = outFile.Seek(0, 0)
	require.NoError(t, err)
	buf := make([]byte, 4096)
	n, _ := outFile.Read(buf)
	out.Write(buf[:n])

	assert.True(t, strings.Contains(out.String(), "Exiting gracefully"))
}
