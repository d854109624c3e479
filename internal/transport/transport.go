// Package transport provides the connection layer clients use to reach
// a session endpoint.  The session itself only listens; dialing is
// needed to probe whether an existing endpoint file is still served and
// to attach test clients.
package transport

import (
	"context"
	"net"
)

// Dialer opens connections to an endpoint.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)
}
