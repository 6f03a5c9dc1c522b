package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of a config file.  Pointer fields tell
// "absent" apart from a zero value.
type fileConfig struct {
	ADB struct {
		Path    *string        `yaml:"path"`
		Host    *string        `yaml:"host"`
		Port    *int           `yaml:"port"`
		Timeout *time.Duration `yaml:"timeout"`
	} `yaml:"adb"`

	Device struct {
		Port         *int           `yaml:"port"`
		PollAttempts *int           `yaml:"poll_attempts"`
		PollInterval *time.Duration `yaml:"poll_interval"`
	} `yaml:"device"`

	Phase struct {
		Port    *int           `yaml:"port"`
		Timeout *time.Duration `yaml:"timeout"`
		Names   []string       `yaml:"names"`
	} `yaml:"phase"`

	Watch struct {
		Interval         *time.Duration `yaml:"interval"`
		BreakerThreshold *int           `yaml:"breaker_threshold"`
		BreakerTimeout   *time.Duration `yaml:"breaker_timeout"`
	} `yaml:"watch"`

	Serve struct {
		Listen *string `yaml:"listen"`
	} `yaml:"serve"`

	Log struct {
		Verbose *int  `yaml:"verbose"`
		JSON    *bool `yaml:"json"`
	} `yaml:"log"`
}

// LoadFile overlays the YAML file at path onto cfg.  Unknown keys are
// rejected so typos do not pass silently.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return loadYAML(data, cfg, path)
}

func loadYAML(data []byte, cfg *Config, name string) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return fmt.Errorf("parse config file %s: %w", name, err)
	}

	set(&cfg.ADBPath, fc.ADB.Path)
	set(&cfg.BrokerHost, fc.ADB.Host)
	set(&cfg.BrokerPort, fc.ADB.Port)
	set(&cfg.DialTimeout, fc.ADB.Timeout)
	set(&cfg.DevicePort, fc.Device.Port)
	set(&cfg.PollAttempts, fc.Device.PollAttempts)
	set(&cfg.PollInterval, fc.Device.PollInterval)
	set(&cfg.PhasePort, fc.Phase.Port)
	set(&cfg.PhaseTimeout, fc.Phase.Timeout)
	if len(fc.Phase.Names) > 0 {
		cfg.PhaseNames = fc.Phase.Names
	}
	set(&cfg.WatchInterval, fc.Watch.Interval)
	set(&cfg.BreakerThreshold, fc.Watch.BreakerThreshold)
	set(&cfg.BreakerTimeout, fc.Watch.BreakerTimeout)
	set(&cfg.ListenAddr, fc.Serve.Listen)
	set(&cfg.Verbose, fc.Log.Verbose)
	set(&cfg.LogJSON, fc.Log.JSON)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
