// Package phase talks to the training app running on a device.  The
// app listens on TCP port 1337 and answers two plain-text commands:
// "get_phase" and "set_phase <name>".
package phase

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"time"

	herrors "headsetctl/internal/errors"
	"headsetctl/internal/transport"
	"headsetctl/util"
)

// DefaultPort is where the app listens.
const DefaultPort = 1337

// maxReply bounds a single reply read.
const maxReply = 128

// DefaultNames are the phases the training app understands.
var DefaultNames = []string{"Onboarding", "Windup"}

// Client issues phase commands to one device app per call.
type Client struct {
	Port   int
	Dialer transport.Dialer
	// Names is the closed set Set accepts; nil means DefaultNames.
	Names []string
	// Timeout bounds a whole exchange when ctx has no deadline.
	Timeout time.Duration
}

// NewClient returns a Client with default port and a TCP dialer.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		Port:    DefaultPort,
		Dialer:  &transport.TCPDialer{Timeout: timeout},
		Timeout: timeout,
	}
}

// Get returns the current phase name of the app at ip.
func (c *Client) Get(ctx context.Context, ip netip.Addr) (string, error) {
	reply, err := c.exchange(ctx, ip, "get_phase")
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(reply)
	if name == "" {
		return "", fmt.Errorf("phase: empty reply from %s", ip)
	}
	return name, nil
}

// Canonical returns the known phase matching name case-insensitively,
// spelled the way the app expects.
func (c *Client) Canonical(name string) (string, error) {
	return Lookup(c.Names, name)
}

// Lookup finds name in names (DefaultNames when nil), ignoring case.
// A miss wraps herrors.ErrUnknownPhase.
func Lookup(names []string, name string) (string, error) {
	if names == nil {
		names = DefaultNames
	}
	name = strings.TrimSpace(name)
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w %q (known: %s)", herrors.ErrUnknownPhase, name, strings.Join(names, ", "))
}

// Set moves the app at ip to phase, which must be one of c.Names.  No
// connection is made for an unknown name.  The app confirms with "ok";
// any other reply is returned as the error text.
func (c *Client) Set(ctx context.Context, ip netip.Addr, phase string) error {
	phase, err := c.Canonical(phase)
	if err != nil {
		return fmt.Errorf("phase: %w", err)
	}
	reply, err := c.exchange(ctx, ip, "set_phase "+phase)
	if err != nil {
		return err
	}
	if strings.TrimSpace(reply) != "ok" {
		return fmt.Errorf("phase: set %s on %s: %s", phase, ip, reply)
	}
	return nil
}

// exchange writes command and reads one reply of up to maxReply bytes.
func (c *Client) exchange(ctx context.Context, ip netip.Addr, command string) (string, error) {
	if _, ok := ctx.Deadline(); !ok && c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := util.FormatAddr(ip.String(), port)

	conn, err := c.dialer().Dial(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("phase: connect %s: %w", addr, err)
	}
	defer conn.Close()
	stop := transport.Bind(ctx, conn)
	defer stop()

	if _, err := io.WriteString(conn, command); err != nil {
		return "", fmt.Errorf("phase: write %s: %w", addr, err)
	}
	buf := make([]byte, maxReply)
	n, err := conn.Read(buf)
	if err != nil && !(err == io.EOF && n > 0) {
		return "", fmt.Errorf("phase: read %s: %w", addr, err)
	}
	return string(buf[:n]), nil
}

func (c *Client) dialer() transport.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &transport.TCPDialer{}
}

// ── Watching ─────────────────────────────────────────────────────────

// Watch polls the phase every interval and calls fn whenever it
// changes.  Read failures are reported to fn with an empty phase and
// do not stop the watch.  Watch returns when ctx is done.
func (c *Client) Watch(ctx context.Context, ip netip.Addr, interval time.Duration, fn func(phase string, err error)) error {
	last := "\x00"
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		p, err := c.Get(ctx, ip)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn("", err)
			last = "\x00"
		} else if p != last {
			fn(p, nil)
			last = p
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

