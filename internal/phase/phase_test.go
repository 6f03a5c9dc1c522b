package phase

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "headsetctl/internal/errors"
)

var loopback = netip.MustParseAddr("127.0.0.1")

// fakeApp answers phase commands like the device app.
type fakeApp struct {
	ln net.Listener

	mu       sync.Mutex
	phase    string
	reply    string // overrides the set_phase reply when non-empty
	commands []string
}

func startApp(t *testing.T, phase string) (*fakeApp, *Client) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := &fakeApp{ln: ln, phase: phase}
	go app.serve()
	t.Cleanup(func() { ln.Close() })

	c := NewClient(time.Second)
	c.Port = ln.Addr().(*net.TCPAddr).Port
	return app, c
}

func (a *fakeApp) serve() {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return
		}
		go a.handle(conn)
	}
}

func (a *fakeApp) handle(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 128)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	cmd := string(buf[:n])

	a.mu.Lock()
	defer a.mu.Unlock()
	a.commands = append(a.commands, cmd)
	switch {
	case cmd == "get_phase":
		conn.Write([]byte(a.phase)) //nolint:errcheck
	case strings.HasPrefix(cmd, "set_phase "):
		if a.reply != "" {
			conn.Write([]byte(a.reply)) //nolint:errcheck
			return
		}
		a.phase = strings.TrimPrefix(cmd, "set_phase ")
		conn.Write([]byte("ok")) //nolint:errcheck
	}
}

func (a *fakeApp) received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.commands...)
}

func (a *fakeApp) rejectWith(reply string) {
	a.mu.Lock()
	a.reply = reply
	a.mu.Unlock()
}

func (a *fakeApp) set(phase string) {
	a.mu.Lock()
	a.phase = phase
	a.mu.Unlock()
}

func TestGet(t *testing.T) {
	_, c := startApp(t, "Onboarding")

	p, err := c.Get(context.Background(), loopback)
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", p)
}

func TestSet(t *testing.T) {
	app, c := startApp(t, "Onboarding")

	require.NoError(t, c.Set(context.Background(), loopback, "Windup"))
	p, err := c.Get(context.Background(), loopback)
	require.NoError(t, err)
	assert.Equal(t, "Windup", p)
	assert.Equal(t, []string{"set_phase Windup", "get_phase"}, app.received())
}

func TestSet_Rejected(t *testing.T) {
	app, c := startApp(t, "Onboarding")
	app.rejectWith("busy")

	err := c.Set(context.Background(), loopback, "Windup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
}

// Names outside the known set never reach the device.
func TestSet_UnknownName(t *testing.T) {
	app, c := startApp(t, "Onboarding")
	for _, name := range []string{"", "Nope", "two words", "line\nbreak"} {
		err := c.Set(context.Background(), loopback, name)
		assert.ErrorIs(t, err, herrors.ErrUnknownPhase, "%q", name)
	}
	assert.Empty(t, app.received())
}

func TestSet_CanonicalSpelling(t *testing.T) {
	app, c := startApp(t, "Onboarding")
	require.NoError(t, c.Set(context.Background(), loopback, " windup "))
	assert.Equal(t, []string{"set_phase Windup"}, app.received())
}

func TestLookup_CustomNames(t *testing.T) {
	names := []string{"Onboarding", "Windup", "Debrief"}
	got, err := Lookup(names, "DEBRIEF")
	require.NoError(t, err)
	assert.Equal(t, "Debrief", got)

	_, err = Lookup(nil, "Debrief")
	assert.ErrorIs(t, err, herrors.ErrUnknownPhase)
	assert.Contains(t, err.Error(), "known: Onboarding, Windup")
}

func TestGet_NoApp(t *testing.T) {
	c := NewClient(200 * time.Millisecond)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	c.Port = ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = c.Get(context.Background(), loopback)
	assert.ErrorContains(t, err, "phase: connect")
}

func TestWatch(t *testing.T) {
	app, c := startApp(t, "Onboarding")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var seen []string
	err := c.Watch(ctx, loopback, 20*time.Millisecond, func(p string, err error) {
		require.NoError(t, err)
		seen = append(seen, p)
		switch len(seen) {
		case 1:
			app.set("Windup")
		case 2:
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"Onboarding", "Windup"}, seen)
}
