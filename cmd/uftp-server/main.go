// Package main implements the uftp server: a single-threaded RUDP/KFTP
// file server that serves one client connection at a time out of a
// configured directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rcarmo/go-uftp/internal/command"
	"github.com/rcarmo/go-uftp/internal/config"
	"github.com/rcarmo/go-uftp/internal/logging"
	"github.com/rcarmo/go-uftp/internal/rudp"
	"github.com/rcarmo/go-uftp/internal/transport/udp"
)

var (
	appName    = "uftp server"
	appVersion = "dev" // injected at build time via -ldflags
)

func main() {
	args, action := parseFlags()
	if action != "" {
		return
	}
	if err := run(args); err != nil {
		log.Fatalln(err)
	}
}

// parsedArgs holds the parsed command line arguments.
type parsedArgs struct {
	host     string
	port     string
	dir      string
	logLevel string
}

//go:noinline
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("uftp-server", flag.ContinueOnError)
	hostFlag := fs.String("host", "", "interface to bind to (default all interfaces)")
	portFlag := fs.String("port", "", "UDP port to listen on")
	dirFlag := fs.String("dir", "", "directory to serve")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	_ = fs.Parse(args)

	if fs.NArg() > 0 && *portFlag == "" {
		// Support the original positional `server <port>` invocation.
		*portFlag = fs.Arg(0)
	}

	if *helpFlag {
		showHelp()
		return parsedArgs{}, "help"
	}

	if *versionFlag {
		showVersion()
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		host:     strings.TrimSpace(*hostFlag),
		port:     strings.TrimSpace(*portFlag),
		dir:      strings.TrimSpace(*dirFlag),
		logLevel: strings.TrimSpace(*logLevelFlag),
	}, ""
}

func run(args parsedArgs) error {
	opts := config.LoadOptions{
		Host:     args.host,
		Port:     args.port,
		LogLevel: args.logLevel,
	}

	cfg, err := config.LoadWithOverrides(opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if args.dir != "" {
		cfg.Server.Dir = args.dir
	}

	logging.SetLevelFromString(cfg.Logging.Level)

	ctx := context.Background()
	ep, err := udp.Listen(ctx, cfg.Server.Host, cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on %s:%d: %w", cfg.Server.Host, cfg.Server.Port, err)
	}
	defer ep.Close()

	logging.Info("uftp server listening on %s:%d, serving %s", cfg.Server.Host, cfg.Server.Port, cfg.Server.Dir)

	return serve(ep, cfg)
}

// serve runs the single-client request loop: the protocol never resets
// tracked sequence numbers, so only one client is ever served for the
// lifetime of the process.
func serve(ep udp.Endpoint, cfg *config.Config) error {
	sender := rudp.NewSender(cfg.RUDP.MessageTimeout, cfg.RUDP.SenderTimeout)
	receiver := rudp.NewReceiver()
	conn := rudp.NewConn(ep, nil, sender, receiver)

	server := command.NewServer(cfg.Server.Dir)
	server.ProgressReports = cfg.KFTP.ProgressReports

	for {
		raw, err := conn.Recv()
		if err != nil {
			logging.Warn("uftp server: recv error, continuing: %v", err)
			continue
		}

		logging.Info("uftp server: received command from %v: %q", conn.Peer, string(raw))

		if err := server.Handle(conn, string(raw)); err != nil {
			if err == command.ErrShouldExit {
				logging.Info("uftp server: client requested exit, shutting down")
				return nil
			}
			logging.Warn("uftp server: error handling command: %v", err)
		}
	}
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: uftp-server [options] [port]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -host        Interface to bind to (default all interfaces)")
	fmt.Println("  -port        UDP port to listen on (default 9090)")
	fmt.Println("  -dir         Directory to serve (default .)")
	fmt.Println("  -log-level   Log level (debug, info, warn, error)")
	fmt.Println("  -version     Show version information")
	fmt.Println("  -help        Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: UFTP_SERVER_HOST, UFTP_SERVER_PORT, UFTP_SERVER_DIR, UFTP_LOG_LEVEL, UFTP_CONFIG_FILE")
	fmt.Println("EXAMPLES: uftp-server -port 9090 -dir ./shared")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Built with Go", time.Now().Year())
	fmt.Println("Protocol: RUDP/KFTP")
}
