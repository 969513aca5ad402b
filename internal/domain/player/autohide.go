package player

import (
	"sync"
	"time"
)

// Autohide hides a player's controls after a period without pointer activity.
// Every Arm restarts the countdown.
type Autohide struct {
	timeout time.Duration
	onHide  func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewAutohide creates a timer that calls onHide once timeout elapses after the last Arm.
func NewAutohide(timeout time.Duration, onHide func()) *Autohide {
	return &Autohide{
		timeout: timeout,
		onHide:  onHide,
	}
}

// Arm starts or restarts the countdown.
func (a *Autohide) Arm() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.timeout, func() { a.fire(gen) })
}

// Cancel stops the countdown without firing.
func (a *Autohide) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Armed reports whether a countdown is running.
func (a *Autohide) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Stop cancels the countdown and prevents any further arming.
func (a *Autohide) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// fire runs onHide unless the countdown was restarted or cancelled since it was armed.
func (a *Autohide) fire(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.mu.Unlock()

	if a.onHide != nil {
		a.onHide()
	}
}
