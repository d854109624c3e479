// Package cmd wires up the CLI flags and runs a session.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"stdiosock/config"
	"stdiosock/internal/core"
	"stdiosock/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X stdiosock/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// ShutdownSignals cancel the session context.  SIGHUP is included so a
// closed controlling terminal still tears the session down.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP} //nolint:gochecknoglobals

// flagValues holds raw flag values; only flags the user actually set
// are applied over the file and environment layers.
type flagValues struct {
	socket       string
	shell        string
	pty          bool
	writeTimeout time.Duration
	gracePeriod  time.Duration
	configFile   string
	stats        bool
	verbose      int
	dryRun       bool
	showVersion  bool
	showHelp     bool
}

func newFlagSet(fv *flagValues) *flag.FlagSet {
	fs := flag.NewFlagSet("stdio-socket", flag.ContinueOnError)
	// Everything after the command's first word belongs to the command.
	fs.SetInterspersed(false)

	// ── endpoint ─────────────────────────────────────────────────
	fs.StringVarP(&fv.socket, "socket", "s", config.DefaultSocketPath, "Unix socket path clients attach to")
	fs.DurationVar(&fv.writeTimeout, "write-timeout", config.DefaultWriteTimeout, "Disconnect a client that blocks a write this long (0 = never)")

	// ── process ──────────────────────────────────────────────────
	fs.BoolVar(&fv.pty, "pty", false, "Run the command on a pseudo-terminal")
	fs.StringVar(&fv.shell, "shell", config.DefaultShell, "Shell that interprets the command")
	fs.DurationVar(&fv.gracePeriod, "grace-period", config.DefaultGracePeriod, "How long to wait for trailing output after exit")

	// ── configuration ────────────────────────────────────────────
	fs.StringVar(&fv.configFile, "config", "", "YAML config file (also $"+config.EnvPrefix+"CONFIG)")
	fs.BoolVar(&fv.dryRun, "dry-run", false, "Validate and print the resolved configuration")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&fv.stats, "stats", false, "Print session statistics as JSON on exit")

	fs.BoolVar(&fv.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&fv.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }
	return fs
}

// Execute parses args and runs a session.
func Execute(ctx context.Context, args []string) error {
	var fv flagValues
	fs := newFlagSet(&fv)

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fv.showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if fv.showVersion {
		fmt.Printf("stdio-socket %s\n", version)
		return nil
	}

	cfg, err := resolveConfig(fs, &fv)
	if err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if fv.dryRun {
		fmt.Print(cfg.String())
		return nil
	}

	// ── run ──────────────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	if cfg.ConfigFile != "" {
		logger.Debug("configuration layered from %s", cfg.ConfigFile)
	}

	ctrl, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	ctrl.OnStateChange = func(from, to core.State) {
		logger.Verbose("session %s", to)
	}

	err = ctrl.Run(ctx)
	if cfg.Stats {
		fmt.Fprintln(os.Stderr, ctrl.Metrics.JSON())
	}
	return err
}

// resolveConfig layers defaults, the YAML file, the environment and the
// flags that were set, in increasing precedence.  The command is the
// remaining arguments joined with spaces.
func resolveConfig(fs *flag.FlagSet, fv *flagValues) (*config.Config, error) {
	cfg := config.Default()

	path := config.ConfigFileFromEnv()
	if fs.Changed("config") {
		path = fv.configFile
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	config.LoadFromEnv(cfg)

	if fs.Changed("socket") {
		cfg.SocketPath = fv.socket
	}
	if fs.Changed("shell") {
		cfg.Shell = fv.shell
	}
	if fs.Changed("pty") {
		cfg.PTY = fv.pty
	}
	if fs.Changed("write-timeout") {
		cfg.WriteTimeout = fv.writeTimeout
	}
	if fs.Changed("grace-period") {
		cfg.GracePeriod = fv.gracePeriod
	}
	if fs.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if fs.Changed("stats") {
		cfg.Stats = fv.stats
	}

	cfg.Command = strings.Join(fs.Args(), " ")
	return cfg, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `stdio-socket v%s

Runs a command and shares its terminal over a Unix socket.  Output is
mirrored locally and to every attached client; keystrokes from the
local terminal and from every client are forwarded to the command.
A client leaves by sending Ctrl+C.

Usage:
  stdio-socket [options] COMMAND [ARGS...]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  stdio-socket bash -i                         Share a shell on %s
  stdio-socket --pty -s /tmp/top.sock top      Share a full-screen program
  socat -,raw,echo=0 UNIX-CONNECT:%s   Attach from another terminal
`, config.DefaultSocketPath, config.DefaultSocketPath)
}
