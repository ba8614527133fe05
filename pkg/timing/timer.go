// Package timing measures test durations and validates them against
// per-category time limits and optional per-test baselines.
package timing

import (
	"errors"
	"sync"
	"time"
)

// TimerState is the lifecycle state of a timer.
type TimerState string

const (
	TimerReady   TimerState = "READY"
	TimerRunning TimerState = "RUNNING"
	TimerStopped TimerState = "STOPPED"
)

var (
	ErrTimerNotStarted = errors.New("timer was never started")
	ErrTimerNotStopped = errors.New("timer was never stopped")
)

// WallTimer measures wall-clock duration using the monotonic clock, so it
// is unaffected by system clock adjustments. Starting a non-ready timer
// implicitly resets it first.
type WallTimer struct {
	mu    sync.Mutex
	state TimerState
	start time.Time
	end   time.Time
}

// NewWallTimer returns a timer in the READY state.
func NewWallTimer() *WallTimer {
	return &WallTimer{state: TimerReady}
}

func (t *WallTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reset returns the timer to its initial state.
func (t *WallTimer) Reset() {
	t.mu.Lock()
	t.state = TimerReady
	t.start = time.Time{}
	t.end = time.Time{}
	t.mu.Unlock()
}

// Start begins timing. A running or stopped timer is reset first.
func (t *WallTimer) Start() {
	t.mu.Lock()
	t.state = TimerRunning
	t.start = time.Now()
	t.end = time.Time{}
	t.mu.Unlock()
}

// Stop ends timing. Stopping a timer that is not running is an error.
func (t *WallTimer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TimerRunning {
		return ErrTimerNotStarted
	}
	t.end = time.Now()
	t.state = TimerStopped
	return nil
}

// Duration returns the measured interval in seconds. Valid only after a
// completed start/stop cycle.
func (t *WallTimer) Duration() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return 0, ErrTimerNotStarted
	}
	if t.end.IsZero() {
		return 0, ErrTimerNotStopped
	}
	return t.end.Sub(t.start).Seconds(), nil
}
