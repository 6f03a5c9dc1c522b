package core

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"headsetctl/internal/adb"
	"headsetctl/internal/connectivity"
)

// fakeBackend answers every device call from fields and records calls.
type fakeBackend struct {
	mu      sync.Mutex
	devices []adb.Device
	err     error
	calls   []string
}

func (f *fakeBackend) record(format string, args ...interface{}) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeBackend) ListDevices(context.Context) ([]adb.Device, error) {
	f.record("devices")
	return f.devices, f.err
}

func (f *fakeBackend) SwitchToNetwork(_ context.Context, serial string, port int) (connectivity.Endpoint, error) {
	f.record("switch %s %d", serial, port)
	return connectivity.Endpoint{IP: netip.MustParseAddr("192.168.1.23"), Port: 5555}, f.err
}

func (f *fakeBackend) DeviceIP(_ context.Context, serial string) (netip.Addr, error) {
	f.record("ip %s", serial)
	return netip.MustParseAddr("192.168.1.23"), f.err
}

func (f *fakeBackend) ConnectIP(_ context.Context, ip netip.Addr, port int) (connectivity.Endpoint, error) {
	f.record("connect %s %d", ip, port)
	return connectivity.Endpoint{IP: ip, Port: port}, f.err
}

func (f *fakeBackend) Disconnect(_ context.Context, ip netip.Addr, port int) error {
	f.record("disconnect %s %d", ip, port)
	return f.err
}

func (f *fakeBackend) KillBroker(context.Context) error {
	f.record("kill")
	return f.err
}

func (f *fakeBackend) LaunchApp(_ context.Context, serial, pkg string) (string, error) {
	f.record("launch %s %s", serial, pkg)
	return "Events injected: 1\n", f.err
}

func (f *fakeBackend) StopApp(_ context.Context, serial, pkg string) error {
	f.record("stop %s %s", serial, pkg)
	return f.err
}

func (f *fakeBackend) IsRunning(_ context.Context, serial, pkg string) (bool, error) {
	f.record("running %s %s", serial, pkg)
	return true, f.err
}

func (f *fakeBackend) IsScreenOn(_ context.Context, serial string) (bool, error) {
	f.record("screen %s", serial)
	return true, f.err
}

func (f *fakeBackend) BatteryLevel(_ context.Context, serial string) (int, error) {
	f.record("battery %s", serial)
	return 42, f.err
}

func (f *fakeBackend) PowerOff(_ context.Context, serial string) error {
	f.record("poweroff %s", serial)
	return f.err
}

// fakePhases implements api.Phases and phaseWatcher.
type fakePhases struct {
	mu      sync.Mutex
	phase   string
	err     error
	sets    []string
	updates []string // emitted by Watch, one per call to fn
}

func (p *fakePhases) Get(context.Context, netip.Addr) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase, p.err
}

func (p *fakePhases) Set(_ context.Context, _ netip.Addr, phase string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets = append(p.sets, phase)
	return p.err
}

func (p *fakePhases) Watch(ctx context.Context, _ netip.Addr, _ time.Duration, fn func(string, error)) error {
	for _, u := range p.updates {
		if u == "" {
			fn("", fmt.Errorf("phase: read: connection reset"))
			continue
		}
		fn(u, nil)
	}
	<-ctx.Done()
	return ctx.Err()
}
