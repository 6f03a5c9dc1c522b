// Package broker keeps the local ADB server available.  The adb
// executable starts the server as a side effect of any client command,
// so the supervisor runs a harmless one and lets adb do the rest.
package broker

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	herrors "headsetctl/internal/errors"
	"headsetctl/internal/process"
	"headsetctl/util"
)

// Supervisor ensures the ADB server is running.
type Supervisor struct {
	// ADB is the path or name of the adb executable.
	ADB     string
	Spawner process.Spawner
	Logger  *util.Logger
}

// New returns a Supervisor using the console-suppressed exec spawner.
func New(adbPath string, logger *util.Logger) *Supervisor {
	if adbPath == "" {
		adbPath = "adb"
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Supervisor{
		ADB:     adbPath,
		Spawner: process.Exec{Logger: logger},
		Logger:  logger,
	}
}

// EnsureRunning runs "adb devices" and waits for it to finish, by which
// point adb has started the server if it was not already up.  Output
// is discarded.  Calling it with a server already running is harmless.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	s.Logger.Verbose("starting adb server via %s devices", s.ADB)

	out, err := s.Spawner.Run(ctx, s.ADB, "devices")
	if err != nil {
		if errors.Is(err, process.ErrNotFound) {
			return fmt.Errorf("%s: %w", s.ADB, herrors.ErrNoADBBinary)
		}
		return fmt.Errorf("start adb server: %w", err)
	}
	s.Logger.Debug("adb devices: %q", out)
	return nil
}

// TCPIP asks adb to restart the device's daemon listening on port.
// The output is returned for logging only and a non-zero exit is not an
// error: adb reports "error: no devices" and similar on stdout, and the
// device poll that follows is what decides.  Only a missing binary or
// a cancelled context fails.
func (s *Supervisor) TCPIP(ctx context.Context, serial string, port int) ([]byte, error) {
	out, err := s.Spawner.Run(ctx, s.ADB, "-s", serial, "tcpip", fmt.Sprint(port))
	if err == nil {
		return out, nil
	}
	if errors.Is(err, process.ErrNotFound) {
		return out, fmt.Errorf("%s: %w", s.ADB, herrors.ErrNoADBBinary)
	}
	if code, exited := process.ExitCode(err); exited && ctx.Err() == nil {
		s.Logger.Warn("adb tcpip %d on %s exited %d: %s", port, serial, code, bytes.TrimSpace(out))
		return out, nil
	}
	return out, err
}
