package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"headsetctl/internal/adb"
	herrors "headsetctl/internal/errors"
	"headsetctl/internal/retry"
	"headsetctl/util"
)

// Lister produces device listings.
type Lister interface {
	ListDevices(ctx context.Context) ([]adb.Device, error)
}

// WatchMode lists devices every Interval and prints each attach,
// detach and state change.  Listings go through Breaker so a dead ADB
// server is probed only once per reset timeout.
type WatchMode struct {
	output
	Lister   Lister
	Interval time.Duration
	Breaker  *retry.Breaker
	Logger   *util.Logger
}

// Run watches until ctx is done.
func (m *WatchMode) Run(ctx context.Context) error {
	w := m.stdout()
	t := time.NewTicker(m.Interval)
	defer t.Stop()

	var last []adb.Device
	for {
		var devices []adb.Device
		err := m.Breaker.Do(ctx, func(ctx context.Context) error {
			var lerr error
			devices, lerr = m.Lister.ListDevices(ctx)
			return lerr
		})
		var open *retry.OpenError
		switch {
		case ctx.Err() != nil:
			return nil
		case herrors.As(err, &open):
			m.Logger.Debug("listing skipped, next probe in %v", open.RetryIn.Round(time.Second))
		case err != nil:
			m.Logger.Warn("list devices: %v", err)
		default:
			now := time.Now().Format("15:04:05")
			for _, c := range adb.Diff(last, devices) {
				printChange(w, now, c)
			}
			last = devices
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func printChange(w io.Writer, ts string, c adb.Change) {
	switch c.Kind {
	case adb.StateChanged:
		fmt.Fprintf(w, "%s %s %s → %s\n", ts, c.Serial, c.Prev, c.State)
	case adb.Detached:
		fmt.Fprintf(w, "%s %s detached\n", ts, c.Serial)
	default:
		fmt.Fprintf(w, "%s %s attached (%s)\n", ts, c.Serial, c.State)
	}
}

// listingBreaker guards periodic device listings (watch and the serve
// stream) and logs its transitions in ADB server terms.
func listingBreaker(threshold int, reset time.Duration, logger *util.Logger) *retry.Breaker {
	return retry.NewBreaker(retry.BreakerConfig{
		Threshold: threshold,
		Cooldown:  reset,
		OnChange: func(from, to retry.State) {
			switch to {
			case retry.StateOpen:
				logger.Warn("adb server keeps failing, pausing listings for %v", reset)
			case retry.StateHalfOpen:
				logger.Verbose("probing adb server")
			case retry.StateClosed:
				logger.Info("adb server reachable again")
			}
		},
	})
}
