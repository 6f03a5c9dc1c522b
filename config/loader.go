package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every headsetctl variable uses the HEADSETCTL_ prefix.  Boolean
// values accept "1", "true", "yes" (case-insensitive).  The adb
// tool's own ANDROID_ADB_SERVER_PORT and ADB_SERVER_SOCKET are
// honoured too, below their HEADSETCTL_ counterparts.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	// adb's own conventions first so ours win.
	if v := envInt("ANDROID_ADB_SERVER_PORT"); v > 0 {
		cfg.BrokerPort = v
	}
	if v := os.Getenv("ADB_SERVER_SOCKET"); v != "" {
		if host, port, err := ParseBrokerAddr(v); err == nil {
			cfg.BrokerHost, cfg.BrokerPort = host, port
		}
	}

	// ADB server
	if v := os.Getenv("HEADSETCTL_ADB"); v != "" {
		cfg.ADBPath = v
	}
	if v := os.Getenv("HEADSETCTL_ADB_HOST"); v != "" {
		cfg.BrokerHost = v
	}
	if v := envInt("HEADSETCTL_ADB_PORT"); v > 0 {
		cfg.BrokerPort = v
	}
	if v := envInt("HEADSETCTL_TIMEOUT"); v > 0 {
		cfg.DialTimeout = secondsDuration(v)
	}

	// Device
	if v := envInt("HEADSETCTL_PORT"); v > 0 {
		cfg.DevicePort = v
	}
	if v := envInt("HEADSETCTL_POLL_ATTEMPTS"); v > 0 {
		cfg.PollAttempts = v
	}
	if v := envDuration("HEADSETCTL_POLL_INTERVAL"); v > 0 {
		cfg.PollInterval = v
	}

	// Phase
	if v := envInt("HEADSETCTL_PHASE_PORT"); v > 0 {
		cfg.PhasePort = v
	}
	if v := envList("HEADSETCTL_PHASES"); len(v) > 0 {
		cfg.PhaseNames = v
	}

	// Watch / serve
	if v := envDuration("HEADSETCTL_WATCH_INTERVAL"); v > 0 {
		cfg.WatchInterval = v
	}
	if v := os.Getenv("HEADSETCTL_LISTEN"); v != "" {
		cfg.ListenAddr = v
	}

	// Output
	if v := envInt("HEADSETCTL_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if envBool("HEADSETCTL_LOG_JSON") {
		cfg.LogJSON = true
	}
}

// ConfigFileFromEnv returns HEADSETCTL_CONFIG, the optional YAML file.
func ConfigFileFromEnv() string {
	return os.Getenv("HEADSETCTL_CONFIG")
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts Go duration syntax ("750ms") or whole seconds.
func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n := envInt(key); n > 0 {
		return secondsDuration(n)
	}
	return 0
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
