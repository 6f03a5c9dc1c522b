package core

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"headsetctl/internal/api"
	"headsetctl/util"
)

// PhaseMode reads or sets the training app phase on one device.
type PhaseMode struct {
	output
	Phases api.Phases
	IP     netip.Addr
	// Phase, when set, is written instead of read.
	Phase string
	// Follow keeps reading every Interval and prints each change.
	Follow   bool
	Interval time.Duration
	Logger   *util.Logger
}

// phaseWatcher is implemented by *phase.Client.
type phaseWatcher interface {
	Watch(ctx context.Context, ip netip.Addr, interval time.Duration, fn func(phase string, err error)) error
}

// Run performs the read, write or follow.
func (m *PhaseMode) Run(ctx context.Context) error {
	w := m.stdout()
	switch {
	case m.Phase != "":
		if err := m.Phases.Set(ctx, m.IP, m.Phase); err != nil {
			return err
		}
		m.Logger.Verbose("%s: phase set to %s", m.IP, m.Phase)
		return nil

	case m.Follow:
		pw, ok := m.Phases.(phaseWatcher)
		if !ok {
			return fmt.Errorf("phase client cannot follow")
		}
		err := pw.Watch(ctx, m.IP, m.Interval, func(p string, err error) {
			if err != nil {
				m.Logger.Warn("%s: %v", m.IP, err)
				return
			}
			fmt.Fprintf(w, "%s %s\n", time.Now().Format("15:04:05"), p)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	default:
		p, err := m.Phases.Get(ctx, m.IP)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, p)
		return nil
	}
}
