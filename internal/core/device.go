package core

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"text/tabwriter"

	"headsetctl/config"
	"headsetctl/internal/api"
	"headsetctl/util"
)

// DeviceMode runs one request against the connectivity orchestrator
// and prints its result.
type DeviceMode struct {
	output
	Backend api.Backend
	Command string
	Serial  string
	IP      netip.Addr
	Port    int // 0 → the orchestrator's default
	Package string
	Logger  *util.Logger
}

// Run dispatches on Command.
func (m *DeviceMode) Run(ctx context.Context) error {
	w := m.stdout()
	switch m.Command {
	case config.CmdDevices:
		devices, err := m.Backend.ListDevices(ctx)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			m.Logger.Info("no devices attached")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERIAL\tSTATE")
		for _, d := range devices {
			fmt.Fprintf(tw, "%s\t%s\n", d.Serial, d.State)
		}
		return tw.Flush()

	case config.CmdConnect:
		ep, err := m.Backend.SwitchToNetwork(ctx, m.Serial, m.Port)
		if err != nil {
			return fmt.Errorf("connect %s: %w", m.Serial, err)
		}
		fmt.Fprintf(w, "connected to %s\n", ep)

	case config.CmdConnectIP:
		ep, err := m.Backend.ConnectIP(ctx, m.IP, m.Port)
		if err != nil {
			return fmt.Errorf("connect %s: %w", m.IP, err)
		}
		fmt.Fprintf(w, "connected to %s\n", ep)

	case config.CmdDisconnect:
		if err := m.Backend.Disconnect(ctx, m.IP, m.Port); err != nil {
			return fmt.Errorf("disconnect %s: %w", m.IP, err)
		}
		m.Logger.Verbose("disconnected %s", m.IP)

	case config.CmdIP:
		ip, err := m.Backend.DeviceIP(ctx, m.Serial)
		if err != nil {
			return fmt.Errorf("ip %s: %w", m.Serial, err)
		}
		fmt.Fprintln(w, ip)

	case config.CmdKillServer:
		if err := m.Backend.KillBroker(ctx); err != nil {
			return fmt.Errorf("kill-server: %w", err)
		}
		m.Logger.Verbose("adb server stopped")

	case config.CmdLaunch:
		out, err := m.Backend.LaunchApp(ctx, m.Serial, m.Package)
		if err != nil {
			return err
		}
		if out = strings.TrimSpace(out); out != "" {
			m.Logger.Verbose("%s", out)
		}
		fmt.Fprintf(w, "launched %s\n", m.Package)

	case config.CmdStop:
		if err := m.Backend.StopApp(ctx, m.Serial, m.Package); err != nil {
			return err
		}

	case config.CmdRunning:
		running, err := m.Backend.IsRunning(ctx, m.Serial, m.Package)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, running)

	case config.CmdBattery:
		level, err := m.Backend.BatteryLevel(ctx, m.Serial)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d%%\n", level)

	case config.CmdScreen:
		on, err := m.Backend.IsScreenOn(ctx, m.Serial)
		if err != nil {
			return err
		}
		if on {
			fmt.Fprintln(w, "on")
		} else {
			fmt.Fprintln(w, "off")
		}

	case config.CmdPowerOff:
		if err := m.Backend.PowerOff(ctx, m.Serial); err != nil {
			return err
		}
		m.Logger.Verbose("%s powering off", m.Serial)

	default:
		return fmt.Errorf("device mode: unsupported command %q", m.Command)
	}
	return nil
}
