package core

import (
	"fmt"

	"headsetctl/config"
	"headsetctl/internal/api"
	"headsetctl/internal/connectivity"
	"headsetctl/internal/metrics"
	"headsetctl/internal/phase"
	"headsetctl/util"
)

// Build constructs the Mode for cfg.Command.  cfg must already be
// validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	switch cfg.Command {
	case config.CmdPhase:
		return buildPhase(cfg, logger)
	case config.CmdWatch:
		return buildWatch(cfg, logger), nil
	case config.CmdServe:
		return buildServe(cfg, logger), nil
	default:
		return buildDevice(cfg, logger)
	}
}

// ── mode builders ────────────────────────────────────────────────────

func buildDevice(cfg *config.Config, logger *util.Logger) (Mode, error) {
	m := &DeviceMode{
		Backend: buildOrchestrator(cfg, nil, logger),
		Command: cfg.Command,
		Serial:  cfg.Serial,
		Package: cfg.Package,
		Logger:  logger,
	}
	switch cfg.Command {
	case config.CmdConnectIP, config.CmdDisconnect:
		ip, err := util.ParseIPv4(cfg.DeviceIP)
		if err != nil {
			return nil, fmt.Errorf("ip: %w", err)
		}
		m.IP = ip
	}
	if cfg.Command == config.CmdConnect || cfg.Command == config.CmdConnectIP || cfg.Command == config.CmdDisconnect {
		m.Port = cfg.DevicePort
	}
	return m, nil
}

func buildPhase(cfg *config.Config, logger *util.Logger) (Mode, error) {
	ip, err := util.ParseIPv4(cfg.DeviceIP)
	if err != nil {
		return nil, fmt.Errorf("ip: %w", err)
	}
	return &PhaseMode{
		Phases:   buildPhaseClient(cfg),
		IP:       ip,
		Phase:    cfg.Phase,
		Follow:   cfg.Follow,
		Interval: cfg.WatchInterval,
		Logger:   logger,
	}, nil
}

func buildWatch(cfg *config.Config, logger *util.Logger) Mode {
	return &WatchMode{
		Lister:   buildOrchestrator(cfg, nil, logger),
		Interval: cfg.WatchInterval,
		Breaker:  listingBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout, logger),
		Logger:   logger,
	}
}

func buildServe(cfg *config.Config, logger *util.Logger) Mode {
	m := metrics.New()
	srv := api.NewServer(api.Config{
		Addr:         cfg.ListenAddr,
		PushInterval: cfg.WatchInterval,
		GracePeriod:  config.DefaultGracePeriod,
		Breaker:      listingBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout, logger),
	}, buildOrchestrator(cfg, m, logger), buildPhaseClient(cfg), m, logger)
	return &ServeMode{Server: srv}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildOrchestrator maps the config onto connectivity.Options.
func buildOrchestrator(cfg *config.Config, m *metrics.Collector, logger *util.Logger) *connectivity.Orchestrator {
	return connectivity.New(connectivity.Options{
		BrokerAddr:   cfg.BrokerAddr(),
		ADBPath:      cfg.ADBPath,
		DialTimeout:  cfg.DialTimeout,
		Port:         cfg.DevicePort,
		PollAttempts: cfg.PollAttempts,
		PollInterval: cfg.PollInterval,
	}, connectivity.Deps{Metrics: m, Logger: logger})
}

func buildPhaseClient(cfg *config.Config) *phase.Client {
	c := phase.NewClient(cfg.PhaseTimeout)
	c.Port = cfg.PhasePort
	c.Names = cfg.PhaseNames
	return c
}
