package retry

import (
	"context"
	"errors"
	"time"
)

var errNotYet = errors.New("condition not met")

// Poller checks a condition a bounded number of times at a fixed
// interval, suspending before every check (including the first).
type Poller struct {
	Attempts int
	Interval time.Duration
	Sleep    SleepFunc // nil → SleepContext
}

// Until runs check up to p.Attempts times.  It reports true as soon as
// check does and false once the attempts are exhausted; exhaustion is
// not an error.  The only error returned is the context's.
func (p Poller) Until(ctx context.Context, check func(ctx context.Context, attempt int) bool) (bool, error) {
	if p.Attempts <= 0 {
		return false, nil
	}
	b := &Backoff{
		Base:     p.Interval,
		Factor:   1,
		Attempts: p.Attempts,
		Leading:  true,
		Sleep:    p.Sleep,
	}
	err := b.Do(ctx, func(ctx context.Context, attempt int) error {
		if check(ctx, attempt) {
			return nil
		}
		return errNotYet
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotYet):
		return false, nil
	default:
		return false, err
	}
}

// Poll is shorthand for Poller{Attempts: maxAttempts, Interval: interval}.Until.
func Poll(ctx context.Context, maxAttempts int, interval time.Duration, check func(ctx context.Context, attempt int) bool) (bool, error) {
	return Poller{Attempts: maxAttempts, Interval: interval}.Until(ctx, check)
}
