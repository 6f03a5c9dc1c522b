package core

import (
	"bytes"
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headsetctl/config"
	"headsetctl/internal/adb"
	herrors "headsetctl/internal/errors"
	"headsetctl/util"
)

func runDevice(t *testing.T, b *fakeBackend, m DeviceMode) (string, error) {
	t.Helper()
	var out bytes.Buffer
	m.Backend = b
	m.Stdout = &out
	m.Logger = util.NewLogger(0)
	err := m.Run(context.Background())
	return out.String(), err
}

func TestDeviceMode_Devices(t *testing.T) {
	b := &fakeBackend{devices: []adb.Device{
		{Serial: "1WMHH000000000", State: adb.Online},
		{Serial: "192.168.1.23:5555", State: adb.Offline},
	}}
	out, err := runDevice(t, b, DeviceMode{Command: config.CmdDevices})
	require.NoError(t, err)
	assert.Equal(t,
		"SERIAL             STATE\n"+
			"1WMHH000000000     device\n"+
			"192.168.1.23:5555  offline\n", out)
}

func TestDeviceMode_NoDevices(t *testing.T) {
	out, err := runDevice(t, &fakeBackend{}, DeviceMode{Command: config.CmdDevices})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDeviceMode_Commands(t *testing.T) {
	ip := netip.MustParseAddr("192.168.1.23")
	tests := []struct {
		mode DeviceMode
		call string
		out  string
	}{
		{DeviceMode{Command: config.CmdConnect, Serial: "S1", Port: 5555}, "switch S1 5555", "connected to 192.168.1.23:5555\n"},
		{DeviceMode{Command: config.CmdConnectIP, IP: ip, Port: 5556}, "connect 192.168.1.23 5556", "connected to 192.168.1.23:5556\n"},
		{DeviceMode{Command: config.CmdDisconnect, IP: ip, Port: 5555}, "disconnect 192.168.1.23 5555", ""},
		{DeviceMode{Command: config.CmdIP, Serial: "S1"}, "ip S1", "192.168.1.23\n"},
		{DeviceMode{Command: config.CmdKillServer}, "kill", ""},
		{DeviceMode{Command: config.CmdLaunch, Serial: "S1", Package: "com.example.app"}, "launch S1 com.example.app", "launched com.example.app\n"},
		{DeviceMode{Command: config.CmdStop, Serial: "S1", Package: "com.example.app"}, "stop S1 com.example.app", ""},
		{DeviceMode{Command: config.CmdRunning, Serial: "S1", Package: "com.example.app"}, "running S1 com.example.app", "true\n"},
		{DeviceMode{Command: config.CmdBattery, Serial: "S1"}, "battery S1", "42%\n"},
		{DeviceMode{Command: config.CmdScreen, Serial: "S1"}, "screen S1", "on\n"},
		{DeviceMode{Command: config.CmdPowerOff, Serial: "S1"}, "poweroff S1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.mode.Command, func(t *testing.T) {
			b := &fakeBackend{}
			out, err := runDevice(t, b, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, b.calls)
			assert.Equal(t, tt.out, out)
		})
	}
}

func TestDeviceMode_ErrorWrapped(t *testing.T) {
	b := &fakeBackend{err: herrors.ErrNotInSameNetwork}
	_, err := runDevice(t, b, DeviceMode{Command: config.CmdConnect, Serial: "S1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, herrors.ErrNotInSameNetwork)
	assert.Contains(t, err.Error(), "connect S1")
}

func TestDeviceMode_UnknownCommand(t *testing.T) {
	_, err := runDevice(t, &fakeBackend{}, DeviceMode{Command: config.CmdServe})
	assert.Error(t, err)
}
