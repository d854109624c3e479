// Package channel adapts raw byte streams (process pipes, client
// sockets, the local terminal) to unit-at-a-time reads and atomic
// writes.
//
// A unit is one byte.  Reader never waits for more data than the
// underlying stream already has, so reading unit by unit adds no
// latency; Writer serialises writers so units from concurrent sources
// never interleave mid-write.
package channel

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"stdiosock/internal/errors"
	"stdiosock/util"
)

// Reader is the read half of a byte channel.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r.  bufio only issues a read when its buffer is
// empty and returns whatever the stream had, so ReadUnit does not wait
// for a full buffer.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadUnit blocks until one unit is available.  End-of-stream and reads
// on a closed stream are reported as [errors.ErrChannelClosed].
func (r *Reader) ReadUnit() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		if util.IsClosed(err) {
			return 0, fmt.Errorf("%w: %v", errors.ErrChannelClosed, err)
		}
		return 0, err
	}
	return b, nil
}

// Buffered reports how many units can be read without blocking.
func (r *Reader) Buffered() int { return r.br.Buffered() }

// Writer is the write half of a byte channel.  All methods are safe
// for concurrent use; each call's bytes reach the stream contiguously.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// flusher is implemented by buffered destinations such as bufio.Writer.
type flusher interface {
	Flush() error
}

// Write writes all of p and flushes, as one atomic operation.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := writeAll(w.w, p)
	if err != nil {
		return n, err
	}
	if f, ok := w.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteUnit writes a single unit and flushes.
func (w *Writer) WriteUnit(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// WriteString is Write for a string.
func (w *Writer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Close waits for an in-flight write to finish, then closes the
// underlying stream if it is an io.Closer.  Later writes fail with the
// stream's closed error.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// writeAll loops over short writes, which io.Writer forbids without an
// error but some pipe and pty implementations still produce.
func writeAll(w io.Writer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}
