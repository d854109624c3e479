package transport

import (
	"context"
	"net"
	"time"
)

// DefaultProbeTimeout bounds how long a liveness probe waits for an
// existing endpoint to accept.
const DefaultProbeTimeout = 500 * time.Millisecond

// UnixDialer connects to Unix domain stream sockets.
type UnixDialer struct {
	Timeout time.Duration
}

// Dial connects to the socket at address.  network is normally "unix";
// an empty network defaults to it.
func (d *UnixDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if network == "" {
		network = "unix"
	}
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, network, address)
}

// Probe reports whether something is accepting connections at path.
// The probe connection is closed immediately.
func Probe(ctx context.Context, d Dialer, path string) bool {
	if d == nil {
		d = &UnixDialer{Timeout: DefaultProbeTimeout}
	}
	conn, err := d.Dial(ctx, "unix", path)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
