package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type ctxKey string

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	const key ctxKey = "target"

	t.Run("ValuesFromPrimary", func(t *testing.T) {
		primary := context.WithValue(context.Background(), key, "tab-1")
		combined, cancel := CombineContext(primary, context.Background())
		defer cancel()

		assert.Equal(t, "tab-1", combined.Value(key))
		assert.NoError(t, combined.Err())
	})

	t.Run("CanceledByPrimary", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		combined, cancel := CombineContext(primary, context.Background())
		defer cancel()

		cancelPrimary()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("CanceledBySecondary", func(t *testing.T) {
		secondary, cancelSecondary := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), secondary)
		defer cancel()

		cancelSecondary()
		assert.Eventually(t, func() bool { return combined.Err() != nil }, time.Second, time.Millisecond)
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("SecondaryDeadline", func(t *testing.T) {
		secondary, cancelSecondary := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelSecondary()
		combined, cancel := CombineContext(context.Background(), secondary)
		defer cancel()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context outlived the secondary deadline")
		}
	})

	t.Run("CancelFuncReleases", func(t *testing.T) {
		combined, cancel := CombineContext(context.Background(), context.Background())
		cancel()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

func TestDetach(t *testing.T) {
	const key ctxKey = "target"
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), key, "tab-1"), time.Millisecond)
	detached := Detach(parent)
	cancel()

	require.Error(t, parent.Err())
	assert.NoError(t, detached.Err())
	assert.Equal(t, "tab-1", detached.Value(key))
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}
