package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_ADB(t *testing.T) {
	t.Setenv("HEADSETCTL_ADB", "/opt/platform-tools/adb")
	t.Setenv("HEADSETCTL_ADB_HOST", "10.1.1.1")
	t.Setenv("HEADSETCTL_ADB_PORT", "5038")
	t.Setenv("HEADSETCTL_TIMEOUT", "9")
	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.ADBPath != "/opt/platform-tools/adb" {
		t.Errorf("ADBPath = %q", cfg.ADBPath)
	}
	if cfg.BrokerAddr() != "10.1.1.1:5038" {
		t.Errorf("BrokerAddr = %q", cfg.BrokerAddr())
	}
	if cfg.DialTimeout != 9*time.Second {
		t.Errorf("DialTimeout = %v", cfg.DialTimeout)
	}
}

func TestLoadFromEnv_AndroidConventions(t *testing.T) {
	t.Setenv("ANDROID_ADB_SERVER_PORT", "5041")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.BrokerPort != 5041 {
		t.Errorf("BrokerPort = %d, want 5041", cfg.BrokerPort)
	}

	t.Setenv("ADB_SERVER_SOCKET", "tcp:buildhost:5042")
	cfg = Default()
	LoadFromEnv(cfg)
	if cfg.BrokerAddr() != "buildhost:5042" {
		t.Errorf("BrokerAddr = %q", cfg.BrokerAddr())
	}

	// Our own variable wins.
	t.Setenv("HEADSETCTL_ADB_PORT", "5043")
	cfg = Default()
	LoadFromEnv(cfg)
	if cfg.BrokerPort != 5043 {
		t.Errorf("BrokerPort = %d, want 5043", cfg.BrokerPort)
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	t.Setenv("HEADSETCTL_POLL_INTERVAL", "750ms")
	t.Setenv("HEADSETCTL_WATCH_INTERVAL", "2")
	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.PollInterval != 750*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.WatchInterval != 2*time.Second {
		t.Errorf("WatchInterval = %v", cfg.WatchInterval)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("HEADSETCTL_LOG_JSON", v)
			cfg := Default()
			LoadFromEnv(cfg)
			if !cfg.LogJSON {
				t.Error("LogJSON should be true")
			}
		})
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	os.Unsetenv("HEADSETCTL_PORT")
	cfg := Default()
	cfg.DevicePort = 5556
	LoadFromEnv(cfg)
	if cfg.DevicePort != 5556 {
		t.Errorf("DevicePort = %d, should not be overridden", cfg.DevicePort)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("HEADSETCTL_POLL_ATTEMPTS", "many")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.PollAttempts != DefaultPollAttempts {
		t.Errorf("PollAttempts = %d, invalid value should be ignored", cfg.PollAttempts)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("HEADSETCTL_VERBOSE", "3")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}

func TestLoadFromEnv_PhaseNames(t *testing.T) {
	t.Setenv("HEADSETCTL_PHASES", "Onboarding, Windup,,Debrief")
	cfg := Default()
	LoadFromEnv(cfg)
	want := []string{"Onboarding", "Windup", "Debrief"}
	if strings.Join(cfg.PhaseNames, "|") != strings.Join(want, "|") {
		t.Errorf("PhaseNames = %v, want %v", cfg.PhaseNames, want)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headsetctl.yaml")
	data := `
adb:
  path: /usr/local/bin/adb
  port: 5038
device:
  poll_interval: 1500ms
phase:
  names: [Onboarding, Windup, Debrief]
watch:
  interval: 1s
serve:
  listen: 0.0.0.0:9000
log:
  json: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.ADBPath != "/usr/local/bin/adb" || cfg.BrokerPort != 5038 {
		t.Errorf("adb section not applied: %+v", cfg)
	}
	if cfg.BrokerHost != DefaultBrokerHost {
		t.Errorf("absent key changed BrokerHost to %q", cfg.BrokerHost)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.WatchInterval != time.Second {
		t.Errorf("WatchInterval = %v", cfg.WatchInterval)
	}
	if len(cfg.PhaseNames) != 3 || cfg.PhaseNames[2] != "Debrief" {
		t.Errorf("PhaseNames = %v", cfg.PhaseNames)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" || !cfg.LogJSON {
		t.Errorf("serve/log not applied: %+v", cfg)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default()); err == nil {
		t.Error("expected error for missing file")
	}

	cfg := Default()
	if err := loadYAML([]byte("adb:\n  prot: 5038\n"), cfg, "typo.yaml"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := loadYAML([]byte("  \n"), cfg, "empty.yaml"); err != nil {
		t.Errorf("empty file should be accepted: %v", err)
	}
}
