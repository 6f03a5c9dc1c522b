// Package config defines the runtime configuration for headsetctl and
// provides helpers for parsing ports and ADB server addresses.
package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"

	herrors "headsetctl/internal/errors"
)

// Commands understood by the CLI.
const (
	CmdDevices    = "devices"
	CmdConnect    = "connect"
	CmdConnectIP  = "connect-ip"
	CmdDisconnect = "disconnect"
	CmdIP         = "ip"
	CmdKillServer = "kill-server"
	CmdLaunch     = "launch"
	CmdStop       = "stop"
	CmdRunning    = "running"
	CmdBattery    = "battery"
	CmdScreen     = "screen"
	CmdPowerOff   = "poweroff"
	CmdPhase      = "phase"
	CmdWatch      = "watch"
	CmdServe      = "serve"
)

// Commands lists every command in help order.
var Commands = []string{
	CmdDevices, CmdConnect, CmdConnectIP, CmdDisconnect, CmdIP, CmdKillServer,
	CmdLaunch, CmdStop, CmdRunning, CmdBattery, CmdScreen, CmdPowerOff,
	CmdPhase, CmdWatch, CmdServe,
}

// Config holds every tuneable for a single headsetctl invocation.
type Config struct {
	Command string

	// ── ADB server ───────────────────────────────────────────────────
	ADBPath     string
	BrokerHost  string
	BrokerPort  int
	DialTimeout time.Duration

	// ── Device ───────────────────────────────────────────────────────
	Serial     string
	DeviceIP   string
	DevicePort int
	Package    string

	// ── Switch workflow ──────────────────────────────────────────────
	PollAttempts int
	PollInterval time.Duration

	// ── Phase protocol ───────────────────────────────────────────────
	Phase        string // empty → read the phase
	Follow       bool   // keep reading the phase every WatchInterval
	PhasePort    int
	PhaseTimeout time.Duration
	PhaseNames   []string // phases "phase <ip> <name>" accepts

	// ── Watch / serve ────────────────────────────────────────────────
	WatchInterval    time.Duration
	BreakerThreshold int
	BreakerTimeout   time.Duration
	ListenAddr       string

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	LogJSON    bool
	ConfigFile string
}

// BrokerAddr returns host:port of the ADB server.
func (c *Config) BrokerAddr() string {
	return fmt.Sprintf("%s:%d", c.BrokerHost, c.BrokerPort)
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal TCP port in 1–65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Broker address parser ────────────────────────────────────────────

// brokerRe matches [tcp:][host:]port and [tcp:]host.
var brokerRe = regexp.MustCompile(`^(?:tcp:)?(?:([^:]+):)?([^:]+)$`)

// ParseBrokerAddr splits an ADB server address such as
// "127.0.0.1:5037", "tcp:localhost:5037" (the ADB_SERVER_SOCKET form)
// or a bare port.  Missing parts fall back to the defaults.
func ParseBrokerAddr(s string) (host string, port int, err error) {
	m := brokerRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", 0, fmt.Errorf("invalid adb server address %q – expected [host:]port", s)
	}
	host, last := m[1], m[2]
	if p, perr := ParsePort(last); perr == nil {
		if host == "" {
			host = DefaultBrokerHost
		}
		return host, p, nil
	}
	if host != "" {
		return "", 0, fmt.Errorf("invalid adb server port %q", last)
	}
	return last, DefaultBrokerPort, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent and
// that the selected command has what it needs.
func (c *Config) Validate() error {
	if c.BrokerHost == "" {
		return &herrors.ConfigError{Field: "adb-host", Message: "ADB server host is empty"}
	}
	if c.BrokerPort < 1 || c.BrokerPort > 65535 {
		return &herrors.ConfigError{Field: "adb-port", Value: c.BrokerPort, Message: "port out of range 1-65535"}
	}
	if c.DevicePort < 1 || c.DevicePort > 65535 {
		return &herrors.ConfigError{Field: "port", Value: c.DevicePort, Message: "port out of range 1-65535"}
	}
	if c.PollAttempts < 1 {
		return &herrors.ConfigError{
			Field:   "poll-attempts",
			Value:   c.PollAttempts,
			Message: "at least one attempt is required",
			Hint:    "the device is polled this many times after switching it to tcpip mode",
		}
	}
	if c.PollInterval <= 0 {
		return &herrors.ConfigError{Field: "poll-interval", Value: c.PollInterval, Message: "must be positive"}
	}

	switch c.Command {
	case CmdConnect, CmdIP, CmdBattery, CmdScreen, CmdPowerOff:
		if c.Serial == "" {
			return missingSerial(c.Command)
		}
	case CmdLaunch, CmdStop, CmdRunning:
		if c.Serial == "" {
			return missingSerial(c.Command)
		}
		if c.Package == "" {
			return &herrors.ConfigError{
				Field:   "package",
				Message: c.Command + " requires an application package",
				Hint:    "headsetctl " + c.Command + " <serial> <package>",
			}
		}
	case CmdConnectIP, CmdDisconnect, CmdPhase:
		if c.DeviceIP == "" {
			return &herrors.ConfigError{
				Field:   "ip",
				Message: c.Command + " requires a device IP address",
				Hint:    "find it with: headsetctl ip <serial>",
			}
		}
		if a, err := netip.ParseAddr(c.DeviceIP); err != nil || !a.Unmap().Is4() {
			return &herrors.ConfigError{Field: "ip", Value: c.DeviceIP, Message: "not an IPv4 address"}
		}
	case CmdWatch:
		if c.WatchInterval <= 0 {
			return &herrors.ConfigError{Field: "interval", Value: c.WatchInterval, Message: "must be positive"}
		}
	case CmdServe:
		if c.ListenAddr == "" {
			return &herrors.ConfigError{Field: "listen", Message: "serve requires a listen address"}
		}
	case CmdDevices, CmdKillServer:
	case "":
		return fmt.Errorf("a command is required (use --help for usage)")
	default:
		return fmt.Errorf("unknown command %q (use --help for usage)", c.Command)
	}

	if c.Command == CmdPhase && c.Phase != "" && !knownPhase(c.PhaseNames, c.Phase) {
		return &herrors.ConfigError{
			Field:   "phase",
			Value:   c.Phase,
			Message: "unknown phase",
			Hint:    "known phases: " + strings.Join(c.PhaseNames, ", "),
		}
	}
	if c.Follow && (c.Command != CmdPhase || c.Phase != "") {
		return &herrors.ConfigError{
			Field:   "follow",
			Message: "--follow only applies when reading a phase",
			Hint:    "headsetctl phase <ip> --follow",
		}
	}
	if c.Follow && c.WatchInterval <= 0 {
		return &herrors.ConfigError{Field: "interval", Value: c.WatchInterval, Message: "must be positive"}
	}
	return nil
}

func missingSerial(cmd string) error {
	return &herrors.ConfigError{
		Field:   "serial",
		Message: cmd + " requires a device serial",
		Hint:    "list attached devices with: headsetctl devices",
	}
}

func knownPhase(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
