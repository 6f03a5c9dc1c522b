// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"headsetctl/config"
	"headsetctl/internal/core"
	"headsetctl/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X headsetctl/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// flagValues holds raw flag values; only flags the user set are
// applied over file and environment settings.
type flagValues struct {
	adbPath          string
	adbHost          string
	adbPort          int
	timeout          time.Duration
	port             int
	pollAttempts     int
	pollInterval     time.Duration
	phasePort        int
	phaseTimeout     time.Duration
	interval         time.Duration
	breakerThreshold int
	breakerTimeout   time.Duration
	listen           string
	follow           bool
	verbose          int
	quiet            bool
	logJSON          bool
	configFile       string
	dryRun           bool
}

// Execute parses args and runs the selected headsetctl command.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, stdout io.Writer) error {
	var fv flagValues
	fs := flag.NewFlagSet("headsetctl", flag.ContinueOnError)
	fs.SetInterspersed(true)

	// ── ADB server ───────────────────────────────────────────────
	fs.StringVar(&fv.adbPath, "adb", config.DefaultADBPath, "Path to the adb binary")
	fs.StringVar(&fv.adbHost, "adb-host", config.DefaultBrokerHost, "ADB server host")
	fs.IntVar(&fv.adbPort, "adb-port", config.DefaultBrokerPort, "ADB server port")
	fs.DurationVarP(&fv.timeout, "timeout", "w", config.DefaultDialTimeout, "ADB server dial timeout")

	// ── device ───────────────────────────────────────────────────
	fs.IntVarP(&fv.port, "port", "p", config.DefaultDevicePort, "Device TCP port for network debugging")
	fs.IntVar(&fv.pollAttempts, "poll-attempts", config.DefaultPollAttempts, "Checks for the device after switching to tcpip")
	fs.DurationVar(&fv.pollInterval, "poll-interval", config.DefaultPollInterval, "Wait before each check")

	// ── phase ────────────────────────────────────────────────────
	fs.IntVar(&fv.phasePort, "phase-port", config.DefaultPhasePort, "Training app port")
	fs.DurationVar(&fv.phaseTimeout, "phase-timeout", config.DefaultPhaseTimeout, "Training app exchange timeout")
	fs.BoolVarP(&fv.follow, "follow", "f", false, "Keep printing phase changes (phase)")

	// ── watch / serve ────────────────────────────────────────────
	fs.DurationVarP(&fv.interval, "interval", "i", config.DefaultWatchInterval, "Device listing interval (watch, serve, phase -f)")
	fs.IntVar(&fv.breakerThreshold, "breaker-threshold", config.DefaultBreakerThreshold, "Failed listings before watch pauses")
	fs.DurationVar(&fv.breakerTimeout, "breaker-timeout", config.DefaultBreakerTimeout, "How long watch pauses")
	fs.StringVarP(&fv.listen, "listen", "l", config.DefaultListenAddr, "Control API address (serve)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&fv.quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&fv.logJSON, "log-json", false, "Log JSON lines instead of console text")
	fs.StringVarP(&fv.configFile, "config", "c", "", "YAML config file (default $HEADSETCTL_CONFIG)")
	fs.BoolVar(&fv.dryRun, "dry-run", false, "Validate and print the resolved configuration")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "headsetctl %s\n", version)
		return nil
	}

	// ── layered configuration ────────────────────────────────────
	cfg := config.Default()
	path := fv.configFile
	if path == "" {
		path = config.ConfigFileFromEnv()
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
		cfg.ConfigFile = path
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, &fv, cfg)

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if fv.dryRun {
		printConfig(stdout, cfg)
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	var logger *util.Logger
	if cfg.LogJSON {
		logger = util.NewJSONLogger(cfg.Verbose)
	} else {
		logger = util.NewLogger(cfg.Verbose)
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func applyFlags(fs *flag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("adb", func() { cfg.ADBPath = fv.adbPath })
	set("adb-host", func() { cfg.BrokerHost = fv.adbHost })
	set("adb-port", func() { cfg.BrokerPort = fv.adbPort })
	set("timeout", func() { cfg.DialTimeout = fv.timeout })
	set("port", func() { cfg.DevicePort = fv.port })
	set("poll-attempts", func() { cfg.PollAttempts = fv.pollAttempts })
	set("poll-interval", func() { cfg.PollInterval = fv.pollInterval })
	set("phase-port", func() { cfg.PhasePort = fv.phasePort })
	set("phase-timeout", func() { cfg.PhaseTimeout = fv.phaseTimeout })
	set("follow", func() { cfg.Follow = fv.follow })
	set("interval", func() { cfg.WatchInterval = fv.interval })
	set("breaker-threshold", func() { cfg.BreakerThreshold = fv.breakerThreshold })
	set("breaker-timeout", func() { cfg.BreakerTimeout = fv.breakerTimeout })
	set("listen", func() { cfg.ListenAddr = fv.listen })
	set("verbose", func() { cfg.Verbose = config.DefaultVerbosity + fv.verbose })
	set("quiet", func() {
		if fv.quiet {
			cfg.Verbose = 0
		}
	})
	set("log-json", func() { cfg.LogJSON = fv.logJSON })
}

// parsePositional reads "<command> [args…]".  A trailing port in
// connect, connect-ip and disconnect overrides --port.
func parsePositional(cfg *config.Config, remaining []string) error {
	if len(remaining) == 0 {
		return fmt.Errorf("a command is required (use --help for usage)")
	}
	cfg.Command, remaining = remaining[0], remaining[1:]

	want := func(min, max int, usage string) error {
		if len(remaining) < min || len(remaining) > max {
			return fmt.Errorf("usage: headsetctl %s", usage)
		}
		return nil
	}
	optPort := func(i int) error {
		if len(remaining) <= i {
			return nil
		}
		p, err := config.ParsePort(remaining[i])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.DevicePort = p
		return nil
	}

	switch cfg.Command {
	case config.CmdDevices, config.CmdKillServer, config.CmdWatch, config.CmdServe:
		return want(0, 0, cfg.Command)
	case config.CmdConnect:
		if err := want(1, 2, "connect <serial> [port]"); err != nil {
			return err
		}
		cfg.Serial = remaining[0]
		return optPort(1)
	case config.CmdConnectIP, config.CmdDisconnect:
		if err := want(1, 2, cfg.Command+" <ip> [port]"); err != nil {
			return err
		}
		cfg.DeviceIP = remaining[0]
		return optPort(1)
	case config.CmdIP, config.CmdBattery, config.CmdScreen, config.CmdPowerOff:
		if err := want(1, 1, cfg.Command+" <serial>"); err != nil {
			return err
		}
		cfg.Serial = remaining[0]
	case config.CmdLaunch, config.CmdStop, config.CmdRunning:
		if err := want(2, 2, cfg.Command+" <serial> <package>"); err != nil {
			return err
		}
		cfg.Serial, cfg.Package = remaining[0], remaining[1]
	case config.CmdPhase:
		if err := want(1, 2, "phase <ip> [phase]"); err != nil {
			return err
		}
		cfg.DeviceIP = remaining[0]
		if len(remaining) == 2 {
			cfg.Phase = remaining[1]
		}
	default:
		return fmt.Errorf("unknown command %q (one of: %s)", cfg.Command, strings.Join(config.Commands, ", "))
	}
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "command:        %s\n", cfg.Command)
	fmt.Fprintf(w, "adb:            %s\n", cfg.ADBPath)
	fmt.Fprintf(w, "adb server:     %s (timeout %v)\n", cfg.BrokerAddr(), cfg.DialTimeout)
	fmt.Fprintf(w, "device port:    %d\n", cfg.DevicePort)
	fmt.Fprintf(w, "poll:           %d × %v\n", cfg.PollAttempts, cfg.PollInterval)
	fmt.Fprintf(w, "phase port:     %d (timeout %v)\n", cfg.PhasePort, cfg.PhaseTimeout)
	fmt.Fprintf(w, "phases:         %s\n", strings.Join(cfg.PhaseNames, ", "))
	fmt.Fprintf(w, "interval:       %v\n", cfg.WatchInterval)
	fmt.Fprintf(w, "breaker:        %d failures, %v pause\n", cfg.BreakerThreshold, cfg.BreakerTimeout)
	fmt.Fprintf(w, "listen:         %s\n", cfg.ListenAddr)
	if cfg.ConfigFile != "" {
		fmt.Fprintf(w, "config file:    %s\n", cfg.ConfigFile)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `headsetctl – Android headset connectivity tool v%s

Moves headsets from USB to network debugging, drives apps on them and
serves a local control API.

Usage:
  headsetctl [options] devices                       List attached devices
  headsetctl [options] connect <serial> [port]       USB → network debugging
  headsetctl [options] connect-ip <ip> [port]        Connect a known address
  headsetctl [options] disconnect <ip> [port]        Drop a network device
  headsetctl [options] ip <serial>                   Print the device LAN address
  headsetctl [options] kill-server                   Stop the ADB server
  headsetctl [options] launch|stop|running <serial> <package>
  headsetctl [options] battery|screen|poweroff <serial>
  headsetctl [options] phase <ip> [phase]            Read or set the app phase
  headsetctl [options] watch                         Print device changes
  headsetctl [options] serve                         Run the control API

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  headsetctl connect 1WMHH000000000                  Switch to tcpip 5555 and connect
  headsetctl -v connect 1WMHH000000000 5556          Same on port 5556, verbose
  headsetctl launch 1WMHH000000000 com.example.app   Start an app
  headsetctl phase 192.168.1.23 Windup               Move the app to a phase
  headsetctl phase -f 192.168.1.23                   Follow phase changes
  headsetctl serve -l 127.0.0.1:8037                 Dashboard API
`)
}
