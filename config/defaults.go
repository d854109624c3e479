package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// Shared by the flag set, the YAML overlay and the environment overlay.

const (
	// DefaultSocketPath is the well-known endpoint clients connect to.
	DefaultSocketPath = "/tmp/stdio.sock"

	// DefaultShell interprets the command string so pipelines and
	// redirections work.
	DefaultShell = "/bin/sh"

	// DefaultWriteTimeout is how long a client may block a single
	// write before it is disconnected.
	DefaultWriteTimeout = time.Second

	// DefaultGracePeriod bounds how long teardown waits for trailing
	// process output after the process exits.
	DefaultGracePeriod = 5 * time.Second

	// DefaultVerbosity prints warnings and errors only.
	DefaultVerbosity = 1

	// InterruptUnit is the byte (Ctrl+C) that ends a client's session
	// when it arrives from a socket client.
	InterruptUnit byte = 0x03

	// MaxSocketPathLen is the portable limit of sockaddr_un.sun_path
	// (104 on the BSDs, 108 on Linux) minus the terminating NUL.
	MaxSocketPathLen = 103

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "STDIO_SOCKET_"
)
