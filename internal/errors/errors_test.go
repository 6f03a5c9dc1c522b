package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokerError_Format(t *testing.T) {
	err := WrapBroker("dial", "127.0.0.1:5037", fmt.Errorf("connection refused"))
	assert.Equal(t, "adb server dial 127.0.0.1:5037: connection refused", err.Error())
}

func TestBrokerError_Unwrap(t *testing.T) {
	err := WrapBroker("read", "x", io.EOF)
	assert.True(t, Is(err, io.EOF))
}

func TestProtocolError_Format(t *testing.T) {
	err := Protocol("host:connect:10.0.0.5:5555", "failed to connect to 10.0.0.5:5555")
	assert.Equal(t, "adb host:connect:10.0.0.5:5555: failed to connect to 10.0.0.5:5555", err.Error())
}

func TestParseError_Unwrap(t *testing.T) {
	err := Parse("ip route", "garbage", ErrNotInANetwork)
	assert.True(t, Is(err, ErrNotInANetwork))
	assert.Contains(t, err.Error(), `"garbage"`)
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "broker-port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "the ADB server normally listens on 5037",
			},
			want: "config: --broker-port=99999: out of range 1-65535\n  hint: the ADB server normally listens on 5037",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "adb",
				Message: "required",
			},
			want: "config: --adb: required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsBrokerUnavailable(t *testing.T) {
	refused := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial broker error", WrapBroker("dial", "x", io.EOF), true},
		{"read broker error", WrapBroker("read", "x", io.EOF), false},
		{"refused op error", refused, true},
		{"wrapped refused", fmt.Errorf("open: %w", refused), true},
		{"protocol error", Protocol("host:version", "nope"), false},
		{"cancelled dial", WrapBroker("dial", "x", &net.OpError{Op: "dial", Net: "tcp", Err: context.Canceled}), false},
		{"expired dial", WrapBroker("dial", "x", fmt.Errorf("dial tcp: %w", context.DeadlineExceeded)), false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBrokerUnavailable(tt.err))
		})
	}
}

func TestIsProtocol(t *testing.T) {
	assert.True(t, IsProtocol(fmt.Errorf("wrapped: %w", Protocol("host:kill", "x"))))
	assert.False(t, IsProtocol(ErrNotInANetwork))
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrNotInANetwork, ErrNotInSameNetwork, ErrNoADBBinary,
		ErrCircuitOpen, ErrTimeout, ErrBusy,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
