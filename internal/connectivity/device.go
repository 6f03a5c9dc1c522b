package connectivity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	herrors "headsetctl/internal/errors"
)

// Broadcasts understood by the headset power manager.  Closing the
// proximity sensor wakes the device so an app launch is not swallowed.
const (
	broadcastProxClose         = "com.oculus.vrpowermanager.prox_close"
	broadcastAutomationDisable = "com.oculus.vrpowermanager.automation_disable"
)

// shell runs one command on serial in a fresh session.
func (o *Orchestrator) shell(ctx context.Context, serial string, argv ...string) ([]byte, error) {
	s, err := o.session(ctx, o.logger)
	if err != nil {
		return nil, err
	}
	return s.Shell(ctx, serial, argv...)
}

// LaunchApp starts pkg through monkey and returns monkey's output.  The
// proximity broadcasts around it are best effort.
func (o *Orchestrator) LaunchApp(ctx context.Context, serial, pkg string) (string, error) {
	s, err := o.session(ctx, o.logger)
	if err != nil {
		return "", err
	}
	if _, err := s.Shell(ctx, serial, "am", "broadcast", "-a", broadcastProxClose); err != nil {
		o.logger.Verbose("%s: prox_close broadcast: %v", serial, err)
	}

	out, err := s.Shell(ctx, serial, "monkey", "-p", pkg, "1")
	if err != nil {
		return "", fmt.Errorf("launch %s on %s: %w", pkg, serial, err)
	}

	if _, err := s.Shell(ctx, serial, "am", "broadcast", "-a", broadcastAutomationDisable); err != nil {
		o.logger.Verbose("%s: automation_disable broadcast: %v", serial, err)
	}
	return string(out), nil
}

// StopApp force-stops pkg.
func (o *Orchestrator) StopApp(ctx context.Context, serial, pkg string) error {
	if _, err := o.shell(ctx, serial, "am", "force-stop", pkg); err != nil {
		return fmt.Errorf("stop %s on %s: %w", pkg, serial, err)
	}
	return nil
}

// IsRunning reports whether pkg has a process on the device.
func (o *Orchestrator) IsRunning(ctx context.Context, serial, pkg string) (bool, error) {
	out, err := o.shell(ctx, serial, "pidof", pkg)
	if err != nil {
		return false, err
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// IsScreenOn reads mScreenOn from the deviceidle service.
func (o *Orchestrator) IsScreenOn(ctx context.Context, serial string) (bool, error) {
	out, err := o.shell(ctx, serial, "dumpsys", "deviceidle", "|", "grep", "mScreenOn")
	if err != nil {
		return false, err
	}
	return parseScreenOn(string(out)), nil
}

// BatteryLevel reads the battery percentage.
func (o *Orchestrator) BatteryLevel(ctx context.Context, serial string) (int, error) {
	out, err := o.shell(ctx, serial, "dumpsys", "battery", "|", "grep", "level")
	if err != nil {
		return 0, err
	}
	return parseBatteryLevel(string(out))
}

// PowerOff shuts the device down.
func (o *Orchestrator) PowerOff(ctx context.Context, serial string) error {
	_, err := o.shell(ctx, serial, "reboot", "-p")
	return err
}

// parseScreenOn expects "  mScreenOn=true".  Anything without "=" is off.
func parseScreenOn(output string) bool {
	_, value, ok := strings.Cut(output, "=")
	return ok && strings.TrimSpace(value) == "true"
}

// parseBatteryLevel expects "  level: 87".  A grep match on another
// key would add lines; only the first is read.
func parseBatteryLevel(output string) (int, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	_, value, ok := strings.Cut(line, ":")
	if !ok {
		return 0, herrors.Parse("dumpsys battery", output, fmt.Errorf("no level field"))
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, herrors.Parse("dumpsys battery", output, err)
	}
	return n, nil
}
