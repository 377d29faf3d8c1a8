package protect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Forever disables the timeout of a wait.
const Forever time.Duration = -1

const (
	DefaultTimeout  = 60 * time.Second
	DefaultInterval = 100 * time.Millisecond
	DefaultSettle   = 20 * time.Millisecond
)

// Condition is polled by a Waiter. An error means "not yet".
type Condition func(ctx context.Context) (bool, error)

// Waiter polls conditions against a page that may still be rendering.
type Waiter struct {
	logger   *zap.Logger
	timeout  time.Duration
	interval time.Duration
	settle   time.Duration
}

// NewWaiter returns a Waiter with the given defaults. Zero values fall back
// to DefaultTimeout, DefaultInterval and DefaultSettle; a negative settle
// disables the settle pause.
func NewWaiter(logger *zap.Logger, timeout, interval, settle time.Duration) *Waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if settle == 0 {
		settle = DefaultSettle
	}
	if settle < 0 {
		settle = 0
	}
	return &Waiter{logger: logger, timeout: timeout, interval: interval, settle: settle}
}

// Until waits with the default timeout and interval.
func (w *Waiter) Until(ctx context.Context, name string, cond Condition) (bool, error) {
	return w.Await(ctx, name, cond, 0, 0)
}

// Await polls cond immediately and then every interval until it reports
// true, the timeout elapses or ctx is done. A zero timeout or interval uses
// the Waiter default; a negative timeout waits forever.
//
// It returns true after the settle pause once cond holds, false on timeout,
// and ctx.Err() when canceled.
func (w *Waiter) Await(ctx context.Context, name string, cond Condition, timeout, interval time.Duration) (bool, error) {
	if timeout == 0 {
		timeout = w.timeout
	}
	if interval <= 0 {
		interval = w.interval
	}
	log := w.logger.With(zap.String("condition", name))

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if w.check(ctx, log, cond) {
			if err := Sleep(ctx, w.settle); err != nil {
				return false, err
			}
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline:
			log.Debug("Condition not met before timeout.", zap.Duration("timeout", timeout))
			return false, nil
		case <-ticker.C:
		}
	}
}

// check evaluates cond once, treating errors and panics as "not yet".
func (w *Waiter) check(ctx context.Context, log *zap.Logger, cond Condition) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("Condition panicked; treating as unsatisfied.", zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()
	ok, err := cond(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Debug("Condition check failed; treating as unsatisfied.", zap.Error(err))
		}
		return false
	}
	return ok
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
