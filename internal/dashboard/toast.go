// ABOUTME: Single-slot toast notifications for dashboard front ends
// ABOUTME: A new toast replaces the visible one and each dismisses itself after a delay

package dashboard

import (
	"sync"
	"time"
)

// ToastDuration is how long a toast stays visible.
const ToastDuration = 3 * time.Second

// Level colours a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Toast is one transient message.
type Toast struct {
	ID      uint64
	Level   Level
	Message string
	Shown   time.Time
}

// Toaster holds at most one toast at a time.
type Toaster struct {
	mu       sync.Mutex
	current  *Toast
	seq      uint64
	timer    *time.Timer
	ttl      time.Duration
	onChange func(*Toast)
}

// NewToaster creates a toaster. onChange, when set, receives the new toast or
// nil on dismissal; it runs outside the lock and possibly on a timer goroutine.
func NewToaster(ttl time.Duration, onChange func(*Toast)) *Toaster {
	if ttl <= 0 {
		ttl = ToastDuration
	}
	return &Toaster{ttl: ttl, onChange: onChange}
}

// Show replaces whatever is visible with a new toast.
func (t *Toaster) Show(level Level, message string) *Toast {
	t.mu.Lock()
	t.seq++
	toast := &Toast{ID: t.seq, Level: level, Message: message, Shown: time.Now()}
	t.current = toast
	if t.timer != nil {
		t.timer.Stop()
	}
	id := toast.ID
	t.timer = time.AfterFunc(t.ttl, func() { t.expire(id) })
	t.mu.Unlock()

	t.notify(toast)
	return toast
}

func (t *Toaster) Success(message string) *Toast { return t.Show(LevelSuccess, message) }
func (t *Toaster) Error(message string) *Toast   { return t.Show(LevelError, message) }
func (t *Toaster) Info(message string) *Toast    { return t.Show(LevelInfo, message) }

// Current returns the visible toast or nil.
func (t *Toaster) Current() *Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Dismiss hides the visible toast now.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}
	t.current = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	t.notify(nil)
}

// expire is the timer callback. A stale timer must not hide a newer toast.
func (t *Toaster) expire(id uint64) {
	t.mu.Lock()
	if t.current == nil || t.current.ID != id {
		t.mu.Unlock()
		return
	}
	t.current = nil
	t.timer = nil
	t.mu.Unlock()

	t.notify(nil)
}

func (t *Toaster) notify(toast *Toast) {
	if t.onChange != nil {
		t.onChange(toast)
	}
}
