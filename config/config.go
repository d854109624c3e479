// Package config defines the runtime configuration for stdio-socket and
// the layered loaders (YAML file, environment) that populate it.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"stdiosock/internal/errors"
)

// Config holds every tuneable for a single stdio-socket session.
type Config struct {
	// ── Process ──────────────────────────────────────────────────────
	Command string // shell command line to run
	Shell   string // interpreter for Command (run as Shell -c Command)
	PTY     bool   // give the child a pseudo-terminal instead of pipes

	// ── Endpoint ─────────────────────────────────────────────────────
	SocketPath   string
	WriteTimeout time.Duration // per-unit client write deadline (0 = none)
	GracePeriod  time.Duration // trailing-output drain after process exit

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	Stats   bool // print the metrics snapshot on exit

	ConfigFile string // YAML file the values were layered from, if any
}

// Default returns a Config populated with the values from defaults.go.
func Default() *Config {
	return &Config{
		Shell:        DefaultShell,
		SocketPath:   DefaultSocketPath,
		WriteTimeout: DefaultWriteTimeout,
		GracePeriod:  DefaultGracePeriod,
		Verbose:      DefaultVerbosity,
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return &errors.ConfigError{
			Field:   "command",
			Message: "a command to run is required",
			Hint:    `pass it as the positional argument, e.g. stdio-socket "bash -i"`,
		}
	}
	if c.SocketPath == "" {
		return &errors.ConfigError{
			Field:   "socket",
			Message: "socket path must not be empty",
			Hint:    "the default is " + DefaultSocketPath,
		}
	}
	if !filepath.IsAbs(c.SocketPath) {
		abs, _ := filepath.Abs(c.SocketPath)
		return &errors.ConfigError{
			Field:   "socket",
			Value:   c.SocketPath,
			Message: "must be an absolute path",
			Hint:    fmt.Sprintf("did you mean %s?", abs),
		}
	}
	if len(c.SocketPath) > MaxSocketPathLen {
		return &errors.ConfigError{
			Field:   "socket",
			Value:   c.SocketPath,
			Message: fmt.Sprintf("longer than the %d bytes a unix socket address can hold", MaxSocketPathLen),
			Hint:    "choose a shorter path, e.g. under /tmp",
		}
	}
	if c.Shell == "" {
		return &errors.ConfigError{
			Field:   "shell",
			Message: "shell must not be empty",
			Hint:    "the default is " + DefaultShell,
		}
	}
	if c.WriteTimeout < 0 {
		return &errors.ConfigError{
			Field:   "write-timeout",
			Value:   c.WriteTimeout,
			Message: "must not be negative",
			Hint:    "use 0 to disable the client write deadline",
		}
	}
	if c.GracePeriod < 0 {
		return &errors.ConfigError{
			Field:   "grace-period",
			Value:   c.GracePeriod,
			Message: "must not be negative",
		}
	}
	return nil
}

// String renders the resolved configuration for --dry-run.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command:       %s\n", c.Command)
	fmt.Fprintf(&b, "shell:         %s\n", c.Shell)
	fmt.Fprintf(&b, "pty:           %t\n", c.PTY)
	fmt.Fprintf(&b, "socket:        %s\n", c.SocketPath)
	fmt.Fprintf(&b, "write-timeout: %s\n", c.WriteTimeout)
	fmt.Fprintf(&b, "grace-period:  %s\n", c.GracePeriod)
	fmt.Fprintf(&b, "verbose:       %d\n", c.Verbose)
	if c.ConfigFile != "" {
		fmt.Fprintf(&b, "config-file:   %s\n", c.ConfigFile)
	}
	return b.String()
}
