// Package terminal wraps the local console: switching it into raw mode
// and reading from it in a way that can be abandoned at teardown.
package terminal

import (
	"io"
	"os"

	"golang.org/x/term"
)

// TTY is the local console: an input file and an output writer.
type TTY struct {
	in  *os.File
	out io.Writer
}

// New returns a TTY reading from in and writing to out.
func New(in *os.File, out io.Writer) *TTY {
	return &TTY{in: in, out: out}
}

// Stdio returns the process's own console.
func Stdio() *TTY { return New(os.Stdin, os.Stdout) }

// IsTerminal reports whether the input is an interactive terminal.
func (t *TTY) IsTerminal() bool {
	return t.in != nil && term.IsTerminal(int(t.in.Fd()))
}

// MakeRaw disables line buffering, echo and signal generation on the
// input terminal, so every keystroke (Ctrl+C included) arrives as a
// unit.  The returned function restores the previous mode and is safe
// to call more than once.  When the input is not a terminal, MakeRaw
// does nothing and restore is a no-op.
func (t *TTY) MakeRaw() (restore func() error, err error) {
	if !t.IsTerminal() {
		return func() error { return nil }, nil
	}
	fd := int(t.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	restored := false
	return func() error {
		if restored {
			return nil
		}
		restored = true
		return term.Restore(fd, oldState)
	}, nil
}

// OpenInput returns a cancellable reader over the input.
func (t *TTY) OpenInput() Input { return NewInput(t.in) }

// Output is where process output is mirrored.
func (t *TTY) Output() io.Writer { return t.out }
