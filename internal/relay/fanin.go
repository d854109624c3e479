package relay

import (
	"context"
	"fmt"

	"stdiosock/internal/channel"
	"stdiosock/internal/errors"
	"stdiosock/internal/metrics"
	"stdiosock/util"
)

// Fanin forwards input units into the process.  One Fanin is shared by
// the terminal source and every client source; the target writer keeps
// units from different sources from interleaving mid-write.
type Fanin struct {
	Target    *channel.Writer
	Interrupt byte // ends a client source; forwarded literally from the terminal
	Metrics   *metrics.Collector
	Logger    *util.Logger
}

// Forward copies units from source to the process input, flushing each
// one, until:
//   - source reaches end-of-stream (returns nil),
//   - a client source sends the interrupt unit (returns
//     errors.ErrInterrupted; the unit is not forwarded),
//   - the process input is closed (returns an error wrapping
//     errors.ErrChannelClosed),
//   - ctx is cancelled (returns ctx.Err()).
//
// A blocked read is released by closing source's underlying stream.
func (f *Fanin) Forward(ctx context.Context, source *channel.Reader, fromClient bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := source.ReadUnit()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, errors.ErrChannelClosed) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if fromClient && b == f.Interrupt {
			return errors.ErrInterrupted
		}

		if err := f.Target.WriteUnit(b); err != nil {
			if util.IsClosed(err) || util.IsBrokenPeer(err) {
				f.Logger.Debug("process input closed: %v", err)
				return fmt.Errorf("%w: process input: %v", errors.ErrChannelClosed, err)
			}
			return fmt.Errorf("write process input: %w", err)
		}
		f.Metrics.UnitsToProcess(1)
	}
}
