// Package adbtest provides an in-process ADB server speaking enough of
// the host protocol to exercise headsetctl against, in the spirit of
// net/http/httptest.
package adbtest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"headsetctl/internal/adb"
)

// ProtocolVersion is what the fake reports for host:version.
const ProtocolVersion = 0x29

// Server is a fake ADB server.  All setters are safe to call while
// requests are in flight.
type Server struct {
	Addr string

	ln net.Listener
	wg sync.WaitGroup

	mu        sync.Mutex
	devices   []adb.Device
	shell     map[string]string // serial + "\x00" + command → output
	connect   func(addr string) (fail bool, msg string)
	onRequest func(service string)
	requests  []string
	killed    bool
}

// NewServer starts a fake server on an ephemeral loopback port.  It is
// closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	return Listen(t, "127.0.0.1:0")
}

// Listen starts a fake server on addr.
func Listen(t testing.TB, addr string) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("adbtest: listen %s: %v", addr, err)
	}
	s := &Server{
		Addr:  ln.Addr().String(),
		ln:    ln,
		shell: make(map[string]string),
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Close stops accepting and waits for in-flight connections.
func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

// SetDevices replaces the device listing.
func (s *Server) SetDevices(devices ...adb.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append([]adb.Device(nil), devices...)
}

// HandleShell registers the output of command on serial.  command is
// the text after "shell:".
func (s *Server) HandleShell(serial, command, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shell[serial+"\x00"+command] = output
}

// HandleConnect overrides the reply to host:connect.  By default the
// fake answers "connected to <addr>".
func (s *Server) HandleConnect(fn func(addr string) (fail bool, msg string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connect = fn
}

// OnRequest installs a hook run for every request before it is
// answered.
func (s *Server) OnRequest(fn func(service string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequest = fn
}

// Requests returns every service requested so far, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many requests started with prefix.
func (s *Server) Count(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// Killed reports whether host:kill was received.
func (s *Server) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// ── Connection handling ──────────────────────────────────────────────

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	r := bufio.NewReader(conn)
	service, err := readRequest(r)
	if err != nil {
		return
	}
	s.record(service)

	switch {
	case service == "host:version":
		okay(conn, fmt.Sprintf("%04x", ProtocolVersion))
	case service == "host:devices":
		okay(conn, s.listing())
	case service == "host:kill":
		s.mu.Lock()
		s.killed = true
		s.mu.Unlock()
		s.ln.Close()
		conn.Write([]byte("OKAY")) //nolint:errcheck
	case strings.HasPrefix(service, "host:connect:"):
		fail, msg := s.connectReply(strings.TrimPrefix(service, "host:connect:"))
		if fail {
			failure(conn, msg)
		} else {
			okay(conn, msg)
		}
	case strings.HasPrefix(service, "host:disconnect:"):
		okay(conn, "disconnected "+strings.TrimPrefix(service, "host:disconnect:"))
	case strings.HasPrefix(service, "host:transport:"):
		s.transport(conn, r, strings.TrimPrefix(service, "host:transport:"))
	default:
		failure(conn, "unknown host service")
	}
}

func (s *Server) transport(conn net.Conn, r *bufio.Reader, serial string) {
	if !s.online(serial) {
		failure(conn, fmt.Sprintf("device '%s' not found", serial))
		return
	}
	conn.Write([]byte("OKAY")) //nolint:errcheck

	req, err := readRequest(r)
	if err != nil {
		return
	}
	s.record(req)
	command, ok := strings.CutPrefix(req, "shell:")
	if !ok {
		failure(conn, "unsupported local service")
		return
	}
	s.mu.Lock()
	out := s.shell[serial+"\x00"+command]
	s.mu.Unlock()
	conn.Write([]byte("OKAY" + out)) //nolint:errcheck
}

func (s *Server) record(service string) {
	s.mu.Lock()
	s.requests = append(s.requests, service)
	hook := s.onRequest
	s.mu.Unlock()
	if hook != nil {
		hook(service)
	}
}

func (s *Server) listing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, d := range s.devices {
		fmt.Fprintf(&b, "%s\t%s\n", d.Serial, d.State)
	}
	return b.String()
}

func (s *Server) online(serial string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := adb.Find(s.devices, serial)
	return ok && d.Online()
}

func (s *Server) connectReply(addr string) (bool, string) {
	s.mu.Lock()
	fn := s.connect
	s.mu.Unlock()
	if fn != nil {
		return fn(addr)
	}
	return false, "connected to " + addr
}

// ── Framing ──────────────────────────────────────────────────────────

func readRequest(r *bufio.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(hdr[:]), 16, 16)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func okay(w io.Writer, body string) {
	fmt.Fprintf(w, "OKAY%04x%s", len(body), body)
}

func failure(w io.Writer, msg string) {
	fmt.Fprintf(w, "FAIL%04x%s", len(msg), msg)
}
