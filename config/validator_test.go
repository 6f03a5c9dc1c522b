package config

import (
	"errors"
	"strings"
	"testing"

	herrors "headsetctl/internal/errors"
)

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(c *Config)
		wantSub string // substring expected in error
	}{
		{
			name:    "missing serial has hint",
			mod:     func(c *Config) { c.Command = CmdConnect },
			wantSub: "hint: list attached devices",
		},
		{
			name:    "missing package has usage hint",
			mod:     func(c *Config) { c.Command = CmdStop; c.Serial = "X" },
			wantSub: "headsetctl stop <serial> <package>",
		},
		{
			name:    "missing ip has hint",
			mod:     func(c *Config) { c.Command = CmdPhase },
			wantSub: "hint: find it with",
		},
		{
			name:    "follow needs phase read",
			mod:     func(c *Config) { c.Command = CmdPhase; c.DeviceIP = "192.168.1.23"; c.Phase = "Windup"; c.Follow = true },
			wantSub: "headsetctl phase <ip> --follow",
		},
		{
			name:    "unknown phase lists known ones",
			mod:     func(c *Config) { c.Command = CmdPhase; c.DeviceIP = "192.168.1.23"; c.Phase = "Debrief" },
			wantSub: "hint: known phases: Onboarding, Windup",
		},
		{
			name:    "poll attempts explained",
			mod:     func(c *Config) { c.Command = CmdDevices; c.PollAttempts = -1 },
			wantSub: "--poll-attempts=-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mod(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
			var ce *herrors.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("expected a ConfigError, got %T", err)
			}
		})
	}
}

// TestParsePort_Fuzz covers edge-case port specs.
func TestParsePort_Fuzz(t *testing.T) {
	edgeCases := []string{
		"1", "65535", "5555", "-1", "65536", "abc", "-", "0", "99999", "1e3", "0x15b3",
	}
	for _, s := range edgeCases {
		t.Run(s, func(t *testing.T) {
			p, err := ParsePort(s)
			if err == nil && (p < 1 || p > 65535) {
				t.Errorf("accepted out-of-range port %d", p)
			}
		})
	}
}

// TestParseBrokerAddr_EdgeCases ensures the parser never panics and
// always returns a usable address on success.
func TestParseBrokerAddr_EdgeCases(t *testing.T) {
	cases := []string{":", "tcp:", "::1", "tcp::5037", "host:", ":5037", "tcp:tcp:5037"}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			host, port, err := ParseBrokerAddr(s)
			if err == nil && (host == "" || port < 1 || port > 65535) {
				t.Errorf("accepted %q as %q:%d", s, host, port)
			}
		})
	}
}
