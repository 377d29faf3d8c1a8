package protect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSessionExpiryKey is the local storage entry in which the
	// dashboard keeps the session expiry.
	DefaultSessionExpiryKey = "portal:localSessionsExpiresAt"

	DefaultWatchdogLead     = 10 * time.Minute
	DefaultWatchdogInterval = 60 * time.Second
)

// Reload reasons reported to the Recorder.
const (
	ReasonExpiring  = "expiring"
	ReasonNavigated = "navigated"
)

// Watchdog reloads the page shortly before the dashboard session expires or
// once the page has left the target URL. The reload starts a fresh run.
type Watchdog struct {
	page     Page
	waiter   *Waiter
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time

	key      string
	lead     time.Duration
	interval time.Duration
}

// NewWatchdog returns a Watchdog. Zero key, lead or interval use the
// defaults, and a nil now uses time.Now.
func NewWatchdog(page Page, waiter *Waiter, logger *zap.Logger, recorder Recorder, now func() time.Time, key string, lead, interval time.Duration) *Watchdog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	if key == "" {
		key = DefaultSessionExpiryKey
	}
	if lead <= 0 {
		lead = DefaultWatchdogLead
	}
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		page:     page,
		waiter:   waiter,
		logger:   logger,
		recorder: recorder,
		now:      now,
		key:      key,
		lead:     lead,
		interval: interval,
	}
}

// Run blocks until the watchdog fires or ctx is done. It reports whether it
// reloaded the page. A missing or unreadable expiry leaves the watchdog
// unarmed, which is not an error.
func (w *Watchdog) Run(ctx context.Context, target string) (bool, error) {
	raw, found, err := w.page.StorageItem(ctx, w.key)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		w.logger.Warn("Could not read session expiry; watchdog not armed.", zap.Error(err))
		return false, nil
	}
	if !found {
		w.logger.Info("No session expiry stored; watchdog not armed.", zap.String("key", w.key))
		return false, nil
	}
	expiry, err := ParseExpiry(raw)
	if err != nil {
		w.logger.Warn("Unrecognized session expiry; watchdog not armed.", zap.String("value", raw), zap.Error(err))
		return false, nil
	}

	trigger := expiry.Add(-w.lead)
	log := w.logger.With(zap.Time("expires_at", expiry), zap.Time("trigger_at", trigger))
	log.Info("Session watchdog armed.")

	var reason string
	due := func(ctx context.Context) (bool, error) {
		loc, err := w.page.Location(ctx)
		if err != nil {
			return false, err
		}
		switch {
		case !MatchesTarget(loc, target):
			reason = ReasonNavigated
		case !w.now().Before(trigger):
			reason = ReasonExpiring
		default:
			return false, nil
		}
		return true, nil
	}
	if _, err := w.waiter.Await(ctx, "session watchdog", due, Forever, w.interval); err != nil {
		return false, err
	}

	log.Info("Reloading dashboard.", zap.String("reason", reason))
	if err := w.page.Reload(ctx); err != nil {
		return false, fmt.Errorf("failed to reload page: %w", err)
	}
	w.recorder.WatchdogReload(reason)
	return true, nil
}

// ParseExpiry reads a stored session expiry. Integers are Unix
// milliseconds, or seconds when too small to be milliseconds; anything else
// must be RFC 3339. Surrounding JSON quotes are ignored.
func ParseExpiry(raw string) (time.Time, error) {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	if s == "" {
		return time.Time{}, errors.New("empty expiry")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry %q: %w", s, err)
	}
	return t, nil
}
