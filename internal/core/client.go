package core

import (
	"net"
	"time"

	"github.com/google/uuid"

	"stdiosock/internal/channel"
)

// drainTimeout bounds how long teardown waits for a write in progress
// to a client that is not reading.
const drainTimeout = time.Second

// client is the registry sink for one accepted connection.
type client struct {
	id      string
	conn    net.Conn
	w       *channel.Writer
	timeout time.Duration
}

func newClient(conn net.Conn, timeout time.Duration) *client {
	return &client{
		id:      uuid.NewString(),
		conn:    conn,
		w:       channel.NewWriter(conn),
		timeout: timeout,
	}
}

func (c *client) ID() string { return c.id }

// Write delivers p in full or fails.  With a timeout set, a client that
// stops reading fails the write instead of stalling the fan-out.
func (c *client) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout)) //nolint:errcheck
	}
	return c.w.Write(p)
}

// Disconnect closes the connection at once, which ends the handler's
// pending read and fails any write in progress.  Repeated calls are
// harmless.
func (c *client) Disconnect() {
	c.conn.Close()
}

// drain lets a write already in progress finish, then closes the
// connection.  The write gets at most drainTimeout.
func (c *client) drain() {
	c.conn.SetWriteDeadline(time.Now().Add(drainTimeout)) //nolint:errcheck
	c.w.Close()                                          //nolint:errcheck
}
