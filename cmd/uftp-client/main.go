// Package main implements the uftp client: an interactive shell that
// drives RUDP/KFTP commands against a uftp server.
package main

import (
	"bufio"
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
	appName    = "uftp client"
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

type parsedArgs struct {
	hostname string
	port     string
	logLevel string
}

//go:noinline
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("uftp-client", flag.ContinueOnError)
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	_ = fs.Parse(args)

	if *helpFlag {
		showHelp()
		return parsedArgs{}, "help"
	}

	if *versionFlag {
		showVersion()
		return parsedArgs{}, "version"
	}

	rest := fs.Args()
	result := parsedArgs{logLevel: strings.TrimSpace(*logLevelFlag)}
	if len(rest) > 0 {
		result.hostname = rest[0]
	}
	if len(rest) > 1 {
		result.port = rest[1]
	}

	return result, ""
}

func run(args parsedArgs) error {
	if args.hostname == "" || args.port == "" {
		return fmt.Errorf("usage: uftp-client <hostname> <port>")
	}

	cfg, err := config.LoadWithOverrides(config.LoadOptions{LogLevel: args.logLevel})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.SetLevelFromString(cfg.Logging.Level)

	portNum, err := parsePort(args.port)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ep, err := udp.Dial(ctx, args.hostname, portNum)
	if err != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", args.hostname, portNum, err)
	}
	defer ep.Close()

	sender := rudp.NewSender(cfg.RUDP.MessageTimeout, cfg.RUDP.SenderTimeout)
	receiver := rudp.NewReceiver()
	conn := rudp.NewConn(ep, nil, sender, receiver)
	client := command.NewClient(conn)
	client.ProgressReports = cfg.KFTP.ProgressReports

	return interact(client, os.Stdin, os.Stdout)
}

func parsePort(s string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(s, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return port, nil
}

// interact runs the read-eval-print loop, terminating on EOF or an exit
// command.
func interact(client *command.Client, in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "Please enter one of the following messages: \n"+
			"\tget <file_name>\n"+
			"\tput <file_name>\n"+
			"\tdelete <file_name>\n"+
			"\tls\n"+
			"\texit\n"+
			"> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("uftp client: reading input: %w", err)
			}
			return nil
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		output, shouldExit, err := client.Execute(line)
		if err != nil {
			return fmt.Errorf("uftp client: %w", err)
		}

		fmt.Fprintln(out, output)

		if shouldExit {
			return nil
		}
	}
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: uftp-client [options] <hostname> <port>")
	fmt.Println("OPTIONS:")
	fmt.Println("  -log-level   Log level (debug, info, warn, error)")
	fmt.Println("  -version     Show version information")
	fmt.Println("  -help        Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: UFTP_LOG_LEVEL, UFTP_CONFIG_FILE")
	fmt.Println("EXAMPLES: uftp-client localhost 9090")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Built with Go", time.Now().Year())
	fmt.Println("Protocol: RUDP/KFTP")
}
