package terminal

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/muesli/cancelreader"
)

// Input is a reader whose pending Read can be abandoned.
type Input interface {
	io.Reader
	// Cancel releases a pending Read, which then reports end-of-stream.
	// It returns false if the underlying reader cannot be interrupted;
	// a pending Read then stays blocked until data arrives.
	Cancel() bool
	Close() error
}

// NewInput wraps r.  Terminals, pipes and sockets get a pollable
// reader; anything the platform cannot poll (a regular file, an
// in-memory reader) is read directly.
func NewInput(r io.Reader) Input {
	cr, err := cancelreader.NewReader(r)
	if err != nil {
		return &plainInput{r: r}
	}
	return &cancelInput{cr: cr}
}

type cancelInput struct {
	cr cancelreader.CancelReader
}

func (c *cancelInput) Read(p []byte) (int, error) {
	n, err := c.cr.Read(p)
	if errors.Is(err, cancelreader.ErrCanceled) {
		return n, io.EOF
	}
	return n, err
}

func (c *cancelInput) Cancel() bool { return c.cr.Cancel() }

func (c *cancelInput) Close() error { return c.cr.Close() }

type plainInput struct {
	r        io.Reader
	canceled atomic.Bool
}

func (p *plainInput) Read(b []byte) (int, error) {
	if p.canceled.Load() {
		return 0, io.EOF
	}
	return p.r.Read(b)
}

func (p *plainInput) Cancel() bool {
	p.canceled.Store(true)
	return false
}

func (p *plainInput) Close() error { return nil }
