// Package transport provides the connection layer used to reach the
// ADB server and device-side TCP services.  Transports handle the "how"
// of getting a socket, independent of the protocol spoken over it.
package transport

import (
	"context"
	"net"
	"time"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}

// Bind ties conn's lifetime to ctx: the context deadline (if any) is
// applied as the connection deadline, and cancelling ctx unblocks any
// pending Read or Write by expiring the deadline.  The returned stop
// function detaches the watcher and must be called once the exchange
// is over.
func Bind(ctx context.Context, conn net.Conn) (stop func()) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	unwatch := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	return func() { unwatch() }
}
