// Package relay moves units between the process and its observers:
// Fanout copies process output to the local terminal and every client,
// Fanin forwards one input source into the process.
package relay

import (
	"context"
	"fmt"
	"io"

	"stdiosock/internal/channel"
	"stdiosock/internal/errors"
	"stdiosock/internal/metrics"
	"stdiosock/internal/registry"
	"stdiosock/util"
)

var crlf = []byte{'\r', '\n'}

// Fanout mirrors process output one unit at a time.
//
// The terminal receives every unit unchanged.  Clients receive a copy
// of every unit emitted while they are registered, with LF rewritten
// to CRLF because clients render in raw mode.  A source that already
// ends lines with CRLF, such as a pty with onlcr set, is passed through
// with PassNewlines.
type Fanout struct {
	Source       *channel.Reader
	Terminal     io.Writer
	Clients      *registry.Registry
	PassNewlines bool
	Metrics      *metrics.Collector
	Logger       *util.Logger

	terminalFailed bool
}

// Run copies units until the source reaches end-of-stream (returns nil)
// or ctx is cancelled.  A blocked read is released by closing the
// source's underlying stream; Run then returns ctx.Err().
func (f *Fanout) Run(ctx context.Context) error {
	unit := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := f.Source.ReadUnit()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, errors.ErrChannelClosed) {
				f.Logger.Debug("process output reached end-of-stream")
				return nil
			}
			return fmt.Errorf("read process output: %w", err)
		}
		f.Metrics.UnitsFromProcess(1)

		unit[0] = b
		f.mirror(unit)

		if b == '\n' && !f.PassNewlines {
			f.broadcast(crlf)
		} else {
			f.broadcast(unit)
		}
	}
}

// mirror writes to the local terminal.  A failing terminal is reported
// once; clients keep receiving output.
func (f *Fanout) mirror(unit []byte) {
	if f.Terminal == nil {
		return
	}
	if _, err := f.Terminal.Write(unit); err != nil && !f.terminalFailed {
		f.terminalFailed = true
		f.Logger.Warn("local terminal write failed, continuing for clients: %v", err)
		f.Metrics.RecordError(err.Error())
	}
}

// broadcast delivers p to every sink registered right now.  The
// snapshot is taken per unit so late joiners start receiving at the
// next unit.
func (f *Fanout) broadcast(p []byte) {
	if f.Clients == nil {
		return
	}
	for _, sink := range f.Clients.Snapshot() {
		n, err := sink.Write(p)
		f.Metrics.BytesToClients(int64(n))
		if err != nil {
			f.drop(sink, errors.ClientWrite(sink.ID(), err))
		}
	}
}

// drop treats a failed write as an implicit disconnect of that client
// only.  The sink may already be on its way out, in which case the
// failure is expected.
func (f *Fanout) drop(sink registry.Sink, err *errors.ClientWriteError) {
	if f.Clients.Remove(sink.ID()) {
		f.Metrics.ClientWriteFailed()
		if util.IsClosed(err) || util.IsBrokenPeer(err) {
			f.Logger.Verbose("client %s went away: %v", sink.ID(), err.Err)
		} else {
			f.Logger.Warn("%v; disconnecting client", err)
			f.Metrics.RecordError(err.Error())
		}
	} else {
		f.Logger.Debug("write to deregistering client %s failed: %v", sink.ID(), err.Err)
	}
	sink.Disconnect()
}
