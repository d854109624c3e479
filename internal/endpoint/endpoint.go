// Package endpoint manages the Unix domain socket clients attach to.
//
// An Endpoint remembers the file it created so that teardown removes
// that file and nothing else: a socket some other session bound at the
// same path afterwards is left alone.
package endpoint

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"

	"stdiosock/internal/errors"
	"stdiosock/internal/transport"
	"stdiosock/util"
)

// Endpoint is a listening socket created by this process.
type Endpoint struct {
	Path string

	ln     *net.UnixListener
	dev    uint64
	ino    uint64
	logger *util.Logger

	closeOnce  sync.Once
	removeOnce sync.Once
	removing   chan struct{}
}

// Listen binds a stream socket at path.
//
// If a socket file already exists at path, it is probed with dialer: an
// answer means another listener owns it and a *errors.BindError with
// InUse set is returned; no answer means it was left behind by a dead
// process and is replaced.  Any other kind of file at path is never
// touched.
func Listen(ctx context.Context, path string, dialer transport.Dialer, logger *util.Logger) (*Endpoint, error) {
	if logger == nil {
		logger = util.NewLogger(0)
	}

	if err := reclaim(ctx, path, dialer, logger); err != nil {
		return nil, err
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errors.Bind(path, err)
	}
	// Removal is ours to decide; see Remove.
	ln.SetUnlinkOnClose(false)

	e := &Endpoint{
		Path:     path,
		ln:       ln,
		logger:   logger,
		removing: make(chan struct{}),
	}
	if fi, err := os.Lstat(path); err == nil {
		if st, ok := fi.Sys().(*syscall.Stat_t); ok {
			e.dev, e.ino = uint64(st.Dev), uint64(st.Ino) //nolint:unconvert
		}
	}
	logger.Verbose("listening on %s", path)
	return e, nil
}

// reclaim clears path for binding, or explains why it cannot be.
func reclaim(ctx context.Context, path string, dialer transport.Dialer, logger *util.Logger) error {
	fi, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Bind(path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return errors.Bind(path, fmt.Errorf("file exists and is not a socket (mode %s)", fi.Mode()))
	}

	if transport.Probe(ctx, dialer, path) {
		be := errors.Bind(path, syscall.EADDRINUSE)
		be.InUse = true
		return be
	}

	logger.Verbose("removing stale socket %s", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Bind(path, fmt.Errorf("remove stale socket: %w", err))
	}
	return nil
}

// Accept waits for the next client.  After Close it returns an error
// that satisfies util.IsClosed.
func (e *Endpoint) Accept() (net.Conn, error) {
	return e.ln.Accept()
}

// Addr returns the listener's address.
func (e *Endpoint) Addr() net.Addr { return e.ln.Addr() }

// Close stops accepting new clients.  Established connections are not
// affected.  The socket file stays until Remove.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.ln.Close()
	})
	if util.IsClosed(err) {
		return nil
	}
	return err
}

// Remove closes the listener and deletes the socket file, provided the
// file at Path is still the one Listen created.  It is idempotent.
func (e *Endpoint) Remove() error {
	cerr := e.Close()

	var rerr error
	e.removeOnce.Do(func() {
		close(e.removing)
		if !e.owns() {
			e.logger.Debug("%s no longer refers to our socket, leaving it", e.Path)
			return
		}
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			rerr = fmt.Errorf("remove %s: %w", e.Path, err)
		}
	})
	if rerr != nil {
		return rerr
	}
	return cerr
}

// Exists reports whether the socket file this endpoint created is still
// present at Path.
func (e *Endpoint) Exists() bool { return e.owns() }

func (e *Endpoint) owns() bool {
	fi, err := os.Lstat(e.Path)
	if err != nil || fi.Mode()&os.ModeSocket == 0 {
		return false
	}
	if e.ino == 0 {
		return true
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	return !ok || (uint64(st.Dev) == e.dev && uint64(st.Ino) == e.ino) //nolint:unconvert
}
