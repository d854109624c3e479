// Package core is the orchestration layer.  It composes the endpoint,
// the process session and the relays into one running session and
// provides a builder that assembles it from a Config.
//
// Architecture layers (bottom → top):
//
//	channel, registry  →  session, endpoint, relay  →  core  →  cmd (CLI)
package core

import (
	"io"

	"stdiosock/internal/terminal"
)

// Terminal is the local console the controller mirrors output to and
// reads keystrokes from.  *terminal.TTY implements it.
type Terminal interface {
	// MakeRaw switches the console to raw mode and returns the function
	// that restores it.
	MakeRaw() (restore func() error, err error)
	// OpenInput returns a reader over the console's keystrokes.
	OpenInput() terminal.Input
	// Output receives process output and lifecycle announcements.
	Output() io.Writer
}

// Lifecycle announcements shown on the local terminal.
const (
	msgProcessStarted     = "Process started with PID %d"
	msgSocketCreated      = "Socket created at %s."
	msgClientConnected    = "Client connected to the socket."
	msgClientDisconnected = "Client disconnected from the socket."
	msgProcessExited      = "Process exited (status %s). Cleaning up..."
	msgSocketClosed       = "Socket closed."
)
