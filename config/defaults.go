package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultADBPath is resolved through PATH.
	DefaultADBPath = "adb"

	// DefaultBrokerHost and DefaultBrokerPort locate the ADB server.
	DefaultBrokerHost = "127.0.0.1"
	DefaultBrokerPort = 5037

	// DefaultDialTimeout bounds each connection to the ADB server.
	DefaultDialTimeout = 5 * time.Second

	// DefaultDevicePort is the TCP port devices listen on in network
	// debugging mode.
	DefaultDevicePort = 5555

	// DefaultPollAttempts and DefaultPollInterval bound the wait for a
	// device to reappear after it restarts in tcpip mode.
	DefaultPollAttempts = 5
	DefaultPollInterval = time.Second

	// DefaultPhasePort is where the training app listens.
	DefaultPhasePort    = 1337
	DefaultPhaseTimeout = 3 * time.Second

	// DefaultWatchInterval is how often watch lists devices.
	DefaultWatchInterval = 500 * time.Millisecond

	// DefaultBreakerThreshold consecutive listing failures open the
	// watch circuit breaker for DefaultBreakerTimeout.
	DefaultBreakerThreshold = 3
	DefaultBreakerTimeout   = 10 * time.Second

	// DefaultListenAddr is the local control API address.
	DefaultListenAddr = "127.0.0.1:8037"

	// DefaultVerbosity prints info and warnings; -v adds to it.
	DefaultVerbosity = 1

	// DefaultGracePeriod is how long serve waits for requests to drain.
	DefaultGracePeriod = 5 * time.Second
)

// Default returns a Config populated with every default.
func Default() *Config {
	return &Config{
		ADBPath:          DefaultADBPath,
		BrokerHost:       DefaultBrokerHost,
		BrokerPort:       DefaultBrokerPort,
		DialTimeout:      DefaultDialTimeout,
		DevicePort:       DefaultDevicePort,
		PollAttempts:     DefaultPollAttempts,
		PollInterval:     DefaultPollInterval,
		PhasePort:        DefaultPhasePort,
		PhaseTimeout:     DefaultPhaseTimeout,
		PhaseNames:       append([]string(nil), DefaultPhaseNames...),
		WatchInterval:    DefaultWatchInterval,
		BreakerThreshold: DefaultBreakerThreshold,
		BreakerTimeout:   DefaultBreakerTimeout,
		ListenAddr:       DefaultListenAddr,
		Verbose:          DefaultVerbosity,
	}
}

// DefaultPhaseNames are the training app's phases.
var DefaultPhaseNames = []string{"Onboarding", "Windup"}
