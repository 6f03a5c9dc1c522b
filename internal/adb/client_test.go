package adb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headsetctl/internal/adb"
	"headsetctl/internal/adb/adbtest"
	herrors "headsetctl/internal/errors"
	"headsetctl/internal/transport"
	"headsetctl/util"
)

const serial = "1WMHH000000000"

func open(t *testing.T, srv *adbtest.Server) *adb.Session {
	t.Helper()
	c := adb.NewClient(srv.Addr, &transport.TCPDialer{Timeout: time.Second}, nil)
	s, err := c.Open(context.Background())
	require.NoError(t, err)
	return s
}

func TestOpen(t *testing.T) {
	srv := adbtest.NewServer(t)
	s := open(t, srv)
	assert.Equal(t, adbtest.ProtocolVersion, s.Version())
	assert.Equal(t, []string{"host:version"}, srv.Requests())
}

func TestOpen_NoServer(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	c := adb.NewClient(util.FormatAddr("127.0.0.1", port), nil, nil)
	_, err = c.Open(context.Background())
	require.Error(t, err)
	assert.True(t, herrors.IsBrokerUnavailable(err), "got %v", err)
}

func TestNewClient_Defaults(t *testing.T) {
	c := adb.NewClient("", nil, nil)
	assert.Equal(t, adb.DefaultAddr, c.Addr)
	assert.NotNil(t, c.Dialer)
	assert.NotNil(t, c.Logger)
}

func TestListDevices(t *testing.T) {
	srv := adbtest.NewServer(t)
	srv.SetDevices(
		adb.Device{Serial: serial, State: adb.Online},
		adb.Device{Serial: "192.168.1.23:5555", State: adb.Unauthorized},
	)

	devs, err := open(t, srv).ListDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []adb.Device{
		{Serial: serial, State: adb.Online},
		{Serial: "192.168.1.23:5555", State: adb.Unauthorized},
	}, devs)
}

func TestShell(t *testing.T) {
	srv := adbtest.NewServer(t)
	srv.SetDevices(adb.Device{Serial: serial, State: adb.Online})
	srv.HandleShell(serial, "getprop service.adb.tcp.port", "5555\n")

	out, err := open(t, srv).Shell(context.Background(), serial, "getprop", "service.adb.tcp.port")
	require.NoError(t, err)
	assert.Equal(t, "5555\n", string(out))
	assert.Contains(t, srv.Requests(), "host:transport:"+serial)
	assert.Contains(t, srv.Requests(), "shell:getprop service.adb.tcp.port")
}

func TestShell_UnknownDevice(t *testing.T) {
	srv := adbtest.NewServer(t)

	_, err := open(t, srv).Shell(context.Background(), "nope", "ls")
	require.Error(t, err)
	assert.True(t, herrors.IsProtocol(err))
	assert.ErrorContains(t, err, "device 'nope' not found")
	assert.False(t, herrors.IsBrokerUnavailable(err))
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		fail    bool
		msg     string
		want    adb.ConnectResult
		wantErr bool
	}{
		{"fresh", false, "connected to 192.168.1.23:5555", adb.Connected, false},
		{"already okay", false, "already connected to 192.168.1.23:5555", adb.AlreadyConnected, false},
		{"already fail", true, "already connected to 192.168.1.23:5555", adb.AlreadyConnected, false},
		{"refused", false, "failed to connect to 192.168.1.23:5555", adb.Connected, true},
		{"fail reply", true, "no route to host", adb.Connected, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := adbtest.NewServer(t)
			srv.HandleConnect(func(string) (bool, string) { return tt.fail, tt.msg })

			got, err := open(t, srv).Connect(context.Background(), "192.168.1.23", 5555)
			assert.Contains(t, srv.Requests(), "host:connect:192.168.1.23:5555")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, herrors.IsProtocol(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisconnect(t *testing.T) {
	srv := adbtest.NewServer(t)
	require.NoError(t, open(t, srv).Disconnect(context.Background(), "192.168.1.23", 5555))
	assert.Contains(t, srv.Requests(), "host:disconnect:192.168.1.23:5555")
}

func TestKill(t *testing.T) {
	srv := adbtest.NewServer(t)
	s := open(t, srv)
	require.NoError(t, s.Kill(context.Background()))
	assert.True(t, srv.Killed())

	_, err := s.ListDevices(context.Background())
	assert.True(t, herrors.IsBrokerUnavailable(err), "got %v", err)
}

func TestShell_ContextCancelled(t *testing.T) {
	srv := adbtest.NewServer(t)
	srv.SetDevices(adb.Device{Serial: serial, State: adb.Online})
	s := open(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Shell(ctx, serial, "ls")
	assert.Error(t, err)
}
