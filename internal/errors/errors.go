// Package errors provides domain-specific error types for stdio-socket.
//
// These types carry structured context (command, endpoint path, client)
// that helps callers decide whether a failure is fatal to the session
// or contained to a single client.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrChannelClosed marks a normal end-of-stream on a process or
	// client channel.  It is a termination signal, not a failure.
	ErrChannelClosed = errors.New("channel closed")
	// ErrInterrupted is returned by a client relay that stopped because
	// the client sent the interrupt unit.
	ErrInterrupted = errors.New("interrupted by client")
)

// ── Structured error types ───────────────────────────────────────────

// SpawnError means the command could not be launched.  It is fatal:
// no session starts.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// BindError means the endpoint path is unavailable.
type BindError struct {
	Path  string
	Err   error
	InUse bool // an active listener answered on Path
}

func (e *BindError) Error() string {
	if e.InUse {
		return fmt.Sprintf("bind %s: already in use by an active listener", e.Path)
	}
	return fmt.Sprintf("bind %s: %v", e.Path, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ClientWriteError is a failed write to one client sink.  It is
// recovered locally by disconnecting that client.
type ClientWriteError struct {
	Client string
	Err    error
}

func (e *ClientWriteError) Error() string {
	return fmt.Sprintf("write to client %s: %v", e.Client, e.Err)
}

func (e *ClientWriteError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Spawn wraps err as a SpawnError for command.
func Spawn(command string, err error) *SpawnError {
	return &SpawnError{Command: command, Err: err}
}

// Bind wraps err as a BindError for path.
func Bind(path string, err error) *BindError {
	return &BindError{Path: path, Err: err}
}

// ClientWrite wraps err as a ClientWriteError for the given client id.
func ClientWrite(client string, err error) *ClientWriteError {
	return &ClientWriteError{Client: client, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsSpawn reports whether err is (or wraps) a SpawnError.
func IsSpawn(err error) bool {
	var se *SpawnError
	return errors.As(err, &se)
}

// IsBind reports whether err is (or wraps) a BindError.
func IsBind(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

// IsTemporary reports whether err represents a temporary condition
// worth retrying, such as running out of file descriptors in accept.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use stdiosock/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
