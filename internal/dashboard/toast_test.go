// ABOUTME: Tests for the single-slot toaster
// ABOUTME: Replacement, auto-dismissal and stale timers

package dashboard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToaster_NewReplacesCurrent(t *testing.T) {
	toasts := NewToaster(time.Minute, nil)

	first := toasts.Success("saved")
	second := toasts.Error("failed")

	cur := toasts.Current()
	require.NotNil(t, cur)
	assert.Equal(t, second.ID, cur.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, "failed", cur.Message)
	assert.Equal(t, LevelError, cur.Level)
}

func TestToaster_AutoDismiss(t *testing.T) {
	var mu sync.Mutex
	var seen []*Toast
	toasts := NewToaster(20*time.Millisecond, func(t *Toast) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, t)
	})

	toasts.Info("hello")
	require.NotNil(t, toasts.Current())

	assert.Eventually(t, func() bool { return toasts.Current() == nil }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, "hello", seen[0].Message)
	assert.Nil(t, seen[1])
}

func TestToaster_StaleTimerKeepsNewerToast(t *testing.T) {
	toasts := NewToaster(time.Minute, nil)

	old := toasts.Info("old")
	newer := toasts.Info("newer")

	toasts.expire(old.ID)
	require.NotNil(t, toasts.Current())
	assert.Equal(t, newer.ID, toasts.Current().ID)

	toasts.expire(newer.ID)
	assert.Nil(t, toasts.Current())
}

func TestToaster_Dismiss(t *testing.T) {
	calls := 0
	toasts := NewToaster(time.Minute, func(*Toast) { calls++ })

	toasts.Dismiss()
	assert.Zero(t, calls, "nothing to dismiss")

	toasts.Success("x")
	toasts.Dismiss()
	assert.Nil(t, toasts.Current())
	assert.Equal(t, 2, calls)
}

func TestToaster_DefaultDuration(t *testing.T) {
	assert.Equal(t, ToastDuration, NewToaster(0, nil).ttl)
	assert.Equal(t, 3*time.Second, ToastDuration)
}
