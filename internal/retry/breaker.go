package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	herrors "headsetctl/internal/errors"
)

// ── Breaker state ────────────────────────────────────────────────────

// State is where a Breaker is in its open/probe/close cycle.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // the ADB server keeps failing; calls are rejected
	StateHalfOpen              // cooldown over; probes decide
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// OpenError is returned instead of calling through while the breaker
// is open.  It matches herrors.ErrCircuitOpen.
type OpenError struct {
	Failures int
	RetryIn  time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%v: %d consecutive failures, retry in %v",
		herrors.ErrCircuitOpen, e.Failures, e.RetryIn.Truncate(time.Second))
}

func (e *OpenError) Unwrap() error { return herrors.ErrCircuitOpen }

// ── Breaker ──────────────────────────────────────────────────────────

// BreakerConfig configures a Breaker.  Zero fields take defaults.
type BreakerConfig struct {
	Threshold int           // consecutive failures that open the breaker (5)
	Cooldown  time.Duration // time spent open before probing (30s)
	Probes    int           // probe successes needed to close again (1)
	// OnChange observes transitions.  It is called with the breaker's
	// lock held and must not call back into it.
	OnChange func(from, to State)
	Now      func() time.Time
}

// Breaker keeps a polling loop from hammering an ADB server that keeps
// failing.  A cancelled or expired context is the caller giving up,
// not the server failing, and does not count.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	streak   int // consecutive failures
	probed   int // probe successes while half-open
	openedAt time.Time
}

// NewBreaker returns a closed Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{cfg: cfg}
}

// Do calls fn unless the breaker is open, in which case it returns an
// *OpenError without calling.  fn's result feeds the failure count.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// State returns the current state.  An open breaker whose cooldown has
// passed still reports open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streak
}

// Reset closes the breaker and forgets past failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streak, b.probed = 0, 0
	b.setState(StateClosed)
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	left := b.cfg.Cooldown - b.cfg.Now().Sub(b.openedAt)
	if left <= 0 {
		b.probed = 0
		b.setState(StateHalfOpen)
		return nil
	}
	return &OpenError{Failures: b.streak, RetryIn: left}
}

func (b *Breaker) record(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.streak++
		if b.state == StateHalfOpen || b.streak >= b.cfg.Threshold {
			b.openedAt = b.cfg.Now()
			b.setState(StateOpen)
		}
		return
	}

	if b.state == StateHalfOpen {
		b.probed++
		if b.probed < b.cfg.Probes {
			return
		}
	}
	b.streak = 0
	b.setState(StateClosed)
}

func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(from, to)
	}
}
