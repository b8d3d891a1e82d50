package autosync

import (
	"sync"
	"time"
)

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers. The default wraps time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DebounceState is the leading-edge debouncer state.
type DebounceState string

const (
	// DebounceIdle means the next change fires immediately.
	DebounceIdle DebounceState = "idle"
	// DebounceRefractory means a fire happened within the window.
	// Further changes extend the window without firing.
	DebounceRefractory DebounceState = "refractory"
	// DebounceArmed means a fire was wanted but a sync was already
	// running. The fire is retried when the window elapses.
	DebounceArmed DebounceState = "armed"
)

// Debouncer fires on the leading edge of a burst and then stays quiet
// until the window passes without new changes.
//
//	idle       --change-->  fire, refractory
//	refractory --change-->  refractory (window restarts)
//	refractory --dropped--> armed
//	armed      --change-->  armed (window restarts)
//	refractory --expire-->  idle
//	armed      --expire-->  fire, refractory
//
// Expiry is delivered through onExpire with a generation number so a
// callback from a stopped timer is recognised as stale.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	state    DebounceState
	timer    Timer
	gen      uint64
	sched    Scheduler
	onExpire func(gen uint64)
}

// NewDebouncer creates an idle debouncer. A window of zero or less fires
// on every change.
func NewDebouncer(window time.Duration, sched Scheduler, onExpire func(gen uint64)) *Debouncer {
	if sched == nil {
		sched = realScheduler{}
	}
	return &Debouncer{
		window:   window,
		state:    DebounceIdle,
		sched:    sched,
		onExpire: onExpire,
	}
}

// Notify records a change and reports whether a sync should start now.
func (d *Debouncer) Notify() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.window <= 0 {
		return true
	}

	switch d.state {
	case DebounceIdle:
		d.state = DebounceRefractory
		d.restartLocked()
		return true
	default:
		d.restartLocked()
		return false
	}
}

// Dropped records that the fire returned by Notify or Expire could not
// start because a sync was in flight.
func (d *Debouncer) Dropped() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.window <= 0 {
		return
	}
	d.state = DebounceArmed
}

// Expire handles the end of the window for generation gen and reports
// whether a retried fire should start now. Stale generations are ignored.
func (d *Debouncer) Expire(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		return false
	}
	d.timer = nil

	if d.state == DebounceArmed {
		d.state = DebounceRefractory
		d.restartLocked()
		return true
	}
	d.state = DebounceIdle
	return false
}

// Reset stops the window timer, applies a new window and returns to idle.
func (d *Debouncer) Reset(window time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.window = window
	d.state = DebounceIdle
}

// Stop cancels the window timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// State returns the current state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Debouncer) restartLocked() {
	d.stopLocked()
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.window, func() {
		if d.onExpire != nil {
			d.onExpire(gen)
		}
	})
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
