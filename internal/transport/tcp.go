package transport

import (
	"context"
	"net"
	"time"
)

// DefaultDialTimeout applies when a TCPDialer has no Timeout.  Both the
// ADB server and the phase endpoint are on the local network, so a
// connect that takes longer than this is not going to succeed.
const DefaultDialTimeout = 5 * time.Second

// TCPDialer reaches the ADB server (normally loopback) and device-side
// services on the LAN.  The zero value is usable.
type TCPDialer struct {
	Timeout time.Duration
	// KeepAlive is passed through to net.Dialer: zero keeps the system
	// default and a negative value disables probes.
	KeepAlive time.Duration
}

// Dial connects to address.  An empty network means "tcp".  Errors are
// the net package's own so callers can tell a refused connection (no
// server listening) from other failures.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if network == "" {
		network = "tcp"
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	nd := net.Dialer{Timeout: timeout, KeepAlive: d.KeepAlive}
	return nd.DialContext(ctx, network, address)
}

// Close implements Dialer; a TCPDialer holds nothing open.
func (d *TCPDialer) Close() error { return nil }
