package protect_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/protect-viewer/internal/mocks"
	"github.com/xkilldash9x/protect-viewer/internal/protect"
)

func newWatchdog(t *testing.T, page protect.Page, rec protect.Recorder, now time.Time) *protect.Watchdog {
	logger := zaptest.NewLogger(t)
	waiter := protect.NewWaiter(logger, time.Second, time.Millisecond, -1)
	clock := func() time.Time { return now }
	return protect.NewWatchdog(page, waiter, logger, rec, clock, "", 10*time.Minute, 5*time.Millisecond)
}

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func TestWatchdog_Run(t *testing.T) {
	defer goleak.VerifyNone(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ExpiryInsideLeadReloadsImmediately", func(t *testing.T) {
		page := mocks.NewFakePage(dashboardURL)
		page.SetStorage(protect.DefaultSessionExpiryKey, millis(now.Add(5*time.Minute)))
		rec := new(mocks.MockRecorder)
		rec.On("WatchdogReload", protect.ReasonExpiring).Once()

		start := time.Now()
		reloaded, err := newWatchdog(t, page, rec, now).Run(context.Background(), dashboardURL)
		require.NoError(t, err)
		assert.True(t, reloaded)
		assert.Equal(t, 1, page.Reloads())
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		rec.AssertExpectations(t)
	})

	t.Run("LeavingTargetReloads", func(t *testing.T) {
		page := mocks.NewFakePage(dashboardURL)
		page.SetStorage(protect.DefaultSessionExpiryKey, millis(now.Add(time.Hour)))
		time.AfterFunc(20*time.Millisecond, func() { page.SetLocation("https://h/protect/devices") })
		rec := new(mocks.MockRecorder)
		rec.On("WatchdogReload", protect.ReasonNavigated).Once()

		reloaded, err := newWatchdog(t, page, rec, now).Run(context.Background(), dashboardURL)
		require.NoError(t, err)
		assert.True(t, reloaded)
		rec.AssertExpectations(t)
	})

	t.Run("NoExpiryIsNotArmed", func(t *testing.T) {
		page := mocks.NewFakePage(dashboardURL)
		rec := new(mocks.MockRecorder)

		reloaded, err := newWatchdog(t, page, rec, now).Run(context.Background(), dashboardURL)
		require.NoError(t, err)
		assert.False(t, reloaded)
		assert.Zero(t, page.Reloads())
		rec.AssertNotCalled(t, "WatchdogReload")
	})

	t.Run("GarbageExpiryIsNotArmed", func(t *testing.T) {
		page := mocks.NewFakePage(dashboardURL)
		page.SetStorage(protect.DefaultSessionExpiryKey, "soon")

		reloaded, err := newWatchdog(t, page, nil, now).Run(context.Background(), dashboardURL)
		require.NoError(t, err)
		assert.False(t, reloaded)
	})

	t.Run("WaitsUntilCanceled", func(t *testing.T) {
		page := mocks.NewFakePage(dashboardURL)
		page.SetStorage(protect.DefaultSessionExpiryKey, millis(now.Add(time.Hour)))
		ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
		defer cancel()

		reloaded, err := newWatchdog(t, page, nil, now).Run(ctx, dashboardURL)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, reloaded)
		assert.Zero(t, page.Reloads())
	})
}

func TestParseExpiry(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"Millis":       strconv.FormatInt(want.UnixMilli(), 10),
		"Seconds":      strconv.FormatInt(want.Unix(), 10),
		"QuotedMillis": `"` + strconv.FormatInt(want.UnixMilli(), 10) + `"`,
		"RFC3339":      "2025-03-01T12:00:00Z",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := protect.ParseExpiry(raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	for _, raw := range []string{"", `""`, "tomorrow"} {
		_, err := protect.ParseExpiry(raw)
		assert.Error(t, err, raw)
	}
}
