// Package adb is a client for the ADB server's host protocol.  It
// covers the handful of host services needed to list devices, run
// shell commands, and manage network connections; it is not a general
// implementation of the device-side protocol.
//
// The server closes the socket after answering a host service, so each
// request made through a Session opens its own connection.
package adb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	herrors "headsetctl/internal/errors"
	"headsetctl/internal/transport"
	"headsetctl/util"
)

// DefaultAddr is where the ADB server listens unless told otherwise.
const DefaultAddr = "127.0.0.1:5037"

// maxShellOutput caps what one shell command may return.
const maxShellOutput = 8 << 20

// Client knows how to reach an ADB server.
type Client struct {
	Addr   string
	Dialer transport.Dialer
	Logger *util.Logger
}

// NewClient returns a Client for the server at addr.  A nil dialer
// means plain TCP and a nil logger discards debug output.
func NewClient(addr string, d transport.Dialer, logger *util.Logger) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	if d == nil {
		d = &transport.TCPDialer{}
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Client{Addr: addr, Dialer: d, Logger: logger}
}

// Session is a handle to a server that answered host:version.  It is
// meant to live for a single orchestration call.
type Session struct {
	client  *Client
	version int
}

// Open confirms the server is alive.  When nothing is listening the
// error is a BrokerError with Op "dial", which
// [herrors.IsBrokerUnavailable] recognises.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	s := &Session{client: c}
	reply, err := s.query(ctx, "host:version")
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(reply), 16, 32)
	if err != nil {
		return nil, herrors.Parse("host:version", reply, err)
	}
	s.version = int(v)
	c.Logger.Debug("adb server at %s speaks protocol version %d", c.Addr, s.version)
	return s, nil
}

// Version is the server's protocol version reported at Open.
func (s *Session) Version() int { return s.version }

// ── Host services ────────────────────────────────────────────────────

// ListDevices returns the current device listing.
func (s *Session) ListDevices(ctx context.Context) ([]Device, error) {
	body, err := s.query(ctx, "host:devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(body), nil
}

// Shell runs argv, joined by spaces, in the device shell and returns
// its raw output.  Nothing is interpreted: the shell's own exit status
// is not reported by this service.
func (s *Session) Shell(ctx context.Context, serial Serial, argv ...string) ([]byte, error) {
	command := "shell:" + strings.Join(argv, " ")
	conn, r, done, err := s.exchange(ctx, "host:transport:"+serial)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := s.send(conn, r, command); err != nil {
		return nil, err
	}
	s.client.Logger.Debug("adb %s: %s", serial, command)

	out, err := util.ReadAllLimit(r, maxShellOutput)
	if errors.Is(err, util.ErrOutputTooLarge) {
		return out, fmt.Errorf("adb %s %s: %w", serial, command, err)
	}
	if err != nil {
		return out, herrors.WrapBroker("read", s.client.Addr, err)
	}
	return out, nil
}

// Connect asks the server to connect to a device over TCP.  An address
// that is already connected counts as success.
func (s *Session) Connect(ctx context.Context, ip string, port int) (ConnectResult, error) {
	service := "host:connect:" + util.FormatAddr(ip, port)
	reply, err := s.query(ctx, service)
	failed := false
	if err != nil {
		var pe *herrors.ProtocolError
		if !errors.As(err, &pe) {
			return Connected, err
		}
		reply, failed = pe.Message, true
	}
	result, ok := classifyConnect(reply, failed)
	if !ok {
		return result, herrors.Protocol(service, strings.TrimSpace(reply))
	}
	s.client.Logger.Debug("adb %s: %s", service, strings.TrimSpace(reply))
	return result, nil
}

// Disconnect drops a TCP device connection.
func (s *Session) Disconnect(ctx context.Context, ip string, port int) error {
	service := "host:disconnect:" + util.FormatAddr(ip, port)
	reply, err := s.query(ctx, service)
	if err != nil {
		return err
	}
	msg := strings.TrimSpace(reply)
	if strings.HasPrefix(strings.ToLower(msg), "error") || strings.HasPrefix(strings.ToLower(msg), "no such device") {
		return herrors.Protocol(service, msg)
	}
	return nil
}

// Kill asks the server to exit.
func (s *Session) Kill(ctx context.Context) error {
	_, _, done, err := s.exchange(ctx, "host:kill")
	if err != nil {
		return err
	}
	done()
	return nil
}

// ── Wire helpers ─────────────────────────────────────────────────────

// query sends service and returns the length-prefixed reply body.
func (s *Session) query(ctx context.Context, service string) (string, error) {
	_, r, done, err := s.exchange(ctx, service)
	if err != nil {
		return "", err
	}
	defer done()
	body, err := readMessage(r)
	if err != nil {
		return "", herrors.WrapBroker("read", s.client.Addr, err)
	}
	return body, nil
}

// exchange opens a connection, sends service and consumes the status.
// On success the caller owns the connection and must call done.
func (s *Session) exchange(ctx context.Context, service string) (net.Conn, *bufio.Reader, func(), error) {
	conn, err := s.client.Dialer.Dial(ctx, "tcp", s.client.Addr)
	if err != nil {
		return nil, nil, nil, herrors.WrapBroker("dial", s.client.Addr, err)
	}
	stop := transport.Bind(ctx, conn)
	done := func() {
		stop()
		conn.Close()
	}

	r := bufio.NewReader(conn)
	if err := s.send(conn, r, service); err != nil {
		done()
		if ctx.Err() != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", service, ctx.Err())
		}
		return nil, nil, nil, err
	}
	return conn, r, done, nil
}

// send writes one request on conn and reads its status.
func (s *Session) send(conn net.Conn, r *bufio.Reader, service string) error {
	req, err := encodeRequest(service)
	if err != nil {
		return err
	}
	if _, err := conn.Write(req); err != nil {
		return herrors.WrapBroker("write", s.client.Addr, err)
	}
	if err := readStatus(r); err != nil {
		var fail *failReply
		if errors.As(err, &fail) {
			return herrors.Protocol(service, fail.Message)
		}
		return herrors.WrapBroker("read", s.client.Addr, err)
	}
	return nil
}
