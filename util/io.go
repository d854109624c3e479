package util

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsClosed returns true for errors that signal a stream reached its end
// or was closed underneath a pending read or write.  These are the
// normal termination signals of a relay loop, not failures.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return true
	}
	// A pty master reports EIO once the last slave descriptor closes.
	if errors.Is(err, syscall.EIO) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsBrokenPeer reports whether err means the other side of a pipe or
// socket went away (EPIPE / ECONNRESET).
func IsBrokenPeer(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
