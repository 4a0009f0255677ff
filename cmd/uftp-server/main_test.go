package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-uftp/internal/command"
	"github.com/rcarmo/go-uftp/internal/config"
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
			name: "flags",
			args: []string{"-host", "127.0.0.1", "-port", "9191", "-dir", "/srv/files", "-log-level", "debug"},
			want: parsedArgs{host: "127.0.0.1", port: "9191", dir: "/srv/files", logLevel: "debug"},
		},
		{
			name: "positional port",
			args: []string{"9191"},
			want: parsedArgs{port: "9191"},
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

func TestServeHandlesExitAndReturns(t *testing.T) {
	dir := t.TempDir()

	serverEp, clientEp := rudptest.Connect("server", "client")
	cfg := &config.Config{Server: config.ServerConfig{Dir: dir}}

	errCh := make(chan error, 1)
	go func() { errCh <- serve(serverEp, cfg) }()

	clientConn := &rudp.Conn{Endpoint: clientEp, Sender: rudp.NewSender(0, 0), Receiver: rudp.NewReceiver()}
	client := command.NewClient(clientConn)

	output, shouldExit, err := client.Execute("exit")
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Equal(t, "Exiting gracefully", output)

	require.NoError(t, <-errCh)
}
