// Package retry provides bounded polling, backoff and circuit breaker
// patterns for talking to the ADB server and to devices that are
// changing transport.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrExhausted wraps the last failure once a Backoff runs out of
// attempts.
var ErrExhausted = errors.New("attempts exhausted")

// SleepFunc suspends the caller for d, returning early with ctx.Err()
// when the context is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default [SleepFunc].
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff spaces out repeated attempts at an operation.  With Factor 1
// it is a fixed-interval schedule, which is what device polling uses.
type Backoff struct {
	Base     time.Duration // first wait; 0 means 1s
	Cap      time.Duration // upper bound on any wait; 0 means no bound
	Factor   float64       // growth per attempt; <= 0 means 2
	Attempts int           // total tries; 0 means until ctx is done
	// Jitter randomises each wait by up to ±Jitter of its length.
	// Values outside (0, 1) disable it.
	Jitter float64
	// Leading waits before the first attempt as well.
	Leading bool
	Sleep   SleepFunc
}

// Delay returns the wait that follows the n-th attempt (1-based),
// before jitter.
func (b *Backoff) Delay(n int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	factor := b.Factor
	if factor <= 0 {
		factor = 2
	}
	d := float64(base)
	for i := 1; i < n; i++ {
		d *= factor
		if b.Cap > 0 && d >= float64(b.Cap) {
			return b.Cap
		}
	}
	if b.Cap > 0 && time.Duration(d) > b.Cap {
		return b.Cap
	}
	return time.Duration(d)
}

func (b *Backoff) jittered(d time.Duration) time.Duration {
	if b.Jitter <= 0 || b.Jitter >= 1 {
		return d
	}
	spread := float64(d) * b.Jitter
	out := time.Duration(float64(d) - spread + rand.Float64()*2*spread)
	if out < time.Millisecond {
		out = time.Millisecond
	}
	return out
}

// Do calls fn until it returns nil.  It stops with ctx.Err() when the
// context ends during a wait, and with ErrExhausted wrapping fn's last
// error once Attempts tries have failed.
func (b *Backoff) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	sleep := b.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	if b.Leading {
		if err := sleep(ctx, b.jittered(b.Delay(1))); err != nil {
			return err
		}
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if b.Attempts > 0 && attempt >= b.Attempts {
			return fmt.Errorf("%w after %d: %w", ErrExhausted, attempt, err)
		}
		next := attempt
		if b.Leading {
			next = attempt + 1
		}
		if serr := sleep(ctx, b.jittered(b.Delay(next))); serr != nil {
			return serr
		}
	}
}
