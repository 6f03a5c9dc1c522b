package connectivity

import (
	"time"

	"headsetctl/internal/adb"
)

// Defaults for the switch workflow.
const (
	DefaultPort         = 5555
	DefaultPollAttempts = 5
	DefaultPollInterval = time.Second
)

// Options is the immutable configuration of an Orchestrator.
type Options struct {
	// BrokerAddr is the ADB server address (host:port).
	BrokerAddr string
	// ADBPath is the adb executable used to start the server and to
	// request tcpip mode.
	ADBPath string
	// DialTimeout bounds each connection to the ADB server.
	DialTimeout time.Duration
	// Port is the device TCP port used when a caller passes 0.
	Port int
	// PollAttempts and PollInterval bound the wait for a device to
	// reappear after the mode switch.
	PollAttempts int
	PollInterval time.Duration
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		BrokerAddr:   adb.DefaultAddr,
		ADBPath:      "adb",
		DialTimeout:  5 * time.Second,
		Port:         DefaultPort,
		PollAttempts: DefaultPollAttempts,
		PollInterval: DefaultPollInterval,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BrokerAddr == "" {
		o.BrokerAddr = d.BrokerAddr
	}
	if o.ADBPath == "" {
		o.ADBPath = d.ADBPath
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.Port == 0 {
		o.Port = d.Port
	}
	if o.PollAttempts == 0 {
		o.PollAttempts = d.PollAttempts
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}
