package protect_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/protect-viewer/internal/protect"
)

func newTestWaiter(t *testing.T) *protect.Waiter {
	return protect.NewWaiter(zaptest.NewLogger(t), time.Second, 5*time.Millisecond, 2*time.Millisecond)
}

// afterCalls returns a condition that holds from its n-th evaluation on.
func afterCalls(n int32) (protect.Condition, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (bool, error) {
		return calls.Add(1) >= n, nil
	}, &calls
}

func TestWaiter_Await(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("ImmediateCheck", func(t *testing.T) {
		w := newTestWaiter(t)
		start := time.Now()
		ok, err := w.Await(context.Background(), "ready", func(context.Context) (bool, error) { return true, nil }, time.Second, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Less(t, time.Since(start), 500*time.Millisecond, "the first check must not wait for an interval")
	})

	t.Run("BecomesTrue", func(t *testing.T) {
		w := newTestWaiter(t)
		cond, calls := afterCalls(4)
		ok, err := w.Until(context.Background(), "fourth poll", cond)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.EqualValues(t, 4, calls.Load())
	})

	t.Run("TimeoutBounds", func(t *testing.T) {
		const (
			timeout  = 60 * time.Millisecond
			interval = 10 * time.Millisecond
			settle   = 5 * time.Millisecond
			slack    = 100 * time.Millisecond
		)
		w := protect.NewWaiter(zaptest.NewLogger(t), timeout, interval, settle)
		start := time.Now()
		ok, err := w.Until(context.Background(), "never", func(context.Context) (bool, error) { return false, nil })
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.LessOrEqual(t, elapsed, timeout+interval+settle+slack)
	})

	t.Run("SettleDelayAfterSuccess", func(t *testing.T) {
		w := protect.NewWaiter(zaptest.NewLogger(t), time.Second, time.Millisecond, 40*time.Millisecond)
		start := time.Now()
		ok, err := w.Until(context.Background(), "ready", func(context.Context) (bool, error) { return true, nil })
		require.NoError(t, err)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("ErrorsAreNotYet", func(t *testing.T) {
		w := newTestWaiter(t)
		var calls atomic.Int32
		failing := func(context.Context) (bool, error) {
			calls.Add(1)
			return true, errors.New("node detached")
		}
		ok, err := w.Await(context.Background(), "always failing", failing, 40*time.Millisecond, 5*time.Millisecond)
		require.NoError(t, err, "predicate errors must not reach the caller")
		assert.False(t, ok)
		assert.Greater(t, calls.Load(), int32(1), "waiting continues after a failed check")
	})

	t.Run("PanicsAreNotYet", func(t *testing.T) {
		w := newTestWaiter(t)
		cond := func(context.Context) (bool, error) { panic("element vanished") }
		var ok bool
		var err error
		assert.NotPanics(t, func() {
			ok, err = w.Await(context.Background(), "panicking", cond, 30*time.Millisecond, 5*time.Millisecond)
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RecoversAfterErrors", func(t *testing.T) {
		w := newTestWaiter(t)
		var calls atomic.Int32
		cond := func(context.Context) (bool, error) {
			if calls.Add(1) < 3 {
				return false, errors.New("not rendered")
			}
			return true, nil
		}
		ok, err := w.Until(context.Background(), "flaky", cond)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ForeverOnlyEndsWhenSatisfied", func(t *testing.T) {
		w := protect.NewWaiter(zaptest.NewLogger(t), 10*time.Millisecond, time.Millisecond, -1)
		cond, calls := afterCalls(50)
		ok, err := w.Await(context.Background(), "forever", cond, protect.Forever, time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok, "a wait without timeout never resolves false")
		assert.GreaterOrEqual(t, calls.Load(), int32(50))
	})

	t.Run("ForeverIsCancelable", func(t *testing.T) {
		w := newTestWaiter(t)
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(30*time.Millisecond, cancel)

		ok, err := w.Await(ctx, "forever", func(context.Context) (bool, error) { return false, nil }, protect.Forever, 5*time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ok)
	})

	t.Run("CanceledBeforeStart", func(t *testing.T) {
		w := newTestWaiter(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var calls atomic.Int32
		_, err := w.Until(ctx, "never evaluated", func(context.Context) (bool, error) {
			calls.Add(1)
			return true, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls.Load())
	})
}

func TestSleep(t *testing.T) {
	require.NoError(t, protect.Sleep(context.Background(), 0))
	require.NoError(t, protect.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, protect.Sleep(ctx, time.Hour), context.Canceled)
}
