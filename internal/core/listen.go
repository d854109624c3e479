package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"stdiosock/internal/channel"
	"stdiosock/internal/errors"
	"stdiosock/internal/metrics"
	"stdiosock/internal/registry"
	"stdiosock/internal/relay"
	"stdiosock/internal/retry"
	"stdiosock/util"
)

// Listener accepts client connections.  *endpoint.Endpoint implements
// it.
type Listener interface {
	Accept() (net.Conn, error)
}

// Server accepts clients on a Listener and runs one handler goroutine
// per connection.  Each handler registers the client's write end for
// process output, forwards the client's input to the process, and
// tears its own client down when the input ends.
type Server struct {
	Listener     Listener
	Clients      *registry.Registry
	Fanin        *relay.Fanin
	WriteTimeout time.Duration  // per-write deadline on client sinks (0 = none)
	Announce     func(string)   // lifecycle messages; may be nil
	Backoff      *retry.Backoff // pacing for temporary accept errors
	Metrics      *metrics.Collector
	Logger       *util.Logger

	wg sync.WaitGroup
}

// Serve accepts connections until the listener is closed or ctx is
// cancelled, both of which return nil.  Temporary accept errors (such
// as running out of file descriptors) are retried with backoff; any
// other accept error is returned.
//
// Close the listener before calling Wait, so no handler starts after
// Wait begins.
func (s *Server) Serve(ctx context.Context) error {
	bo := retry.AcceptBackoff()
	if s.Backoff != nil {
		b := *s.Backoff
		bo = &b
	}
	if bo.OnRetry == nil {
		bo.OnRetry = func(attempt int, err error, wait time.Duration) {
			s.Logger.Warn("accept: %v; retrying in %v", err, wait)
		}
	}

	for {
		var conn net.Conn
		err := bo.Do(ctx, func(int) error {
			c, err := s.Listener.Accept()
			if err != nil {
				if ctx.Err() != nil || util.IsClosed(err) || !errors.IsTemporary(err) {
					return retry.Permanent(err)
				}
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil || util.IsClosed(err) {
				return nil
			}
			s.Metrics.RecordError(err.Error())
			return fmt.Errorf("accept: %w", err)
		}

		// Registered before the handler starts, so a CloseClients that
		// follows Serve's return reaches every accepted connection.
		c := newClient(conn, s.WriteTimeout)
		s.Clients.Add(c)
		s.Metrics.ClientConnected()

		s.wg.Add(1)
		go s.serveClient(ctx, c)
	}
}

func (s *Server) serveClient(ctx context.Context, c *client) {
	defer s.wg.Done()

	s.Logger.Verbose("client %s attached", c.id)
	s.announce(msgClientConnected)

	err := s.Fanin.Forward(ctx, channel.NewReader(c.conn), true)
	switch {
	case err == nil:
		s.Logger.Verbose("client %s closed its connection", c.id)
	case errors.Is(err, errors.ErrInterrupted):
		s.Logger.Verbose("client %s sent interrupt", c.id)
	case errors.Is(err, errors.ErrChannelClosed):
		s.Logger.Debug("client %s: process input closed", c.id)
	case ctx.Err() != nil:
	case util.IsClosed(err), util.IsBrokenPeer(err):
		s.Logger.Debug("client %s: %v", c.id, err)
	default:
		s.Logger.Warn("client %s: %v", c.id, err)
		s.Metrics.RecordError(err.Error())
	}

	s.Clients.Remove(c.id)
	c.drain()
	s.Metrics.ClientDisconnected()
	s.announce(msgClientDisconnected)
}

// CloseClients disconnects every registered client.  Each handler then
// runs its own teardown; use Wait to block until they are done.  It
// returns the number of clients disconnected.
func (s *Server) CloseClients() int {
	return s.Clients.DisconnectAll()
}

// Wait blocks until every client handler has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) announce(msg string) {
	if s.Announce != nil {
		s.Announce(msg)
	}
}
