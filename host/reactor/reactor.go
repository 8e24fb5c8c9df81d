// Package reactor implements the single-threaded cooperative event loop the
// host toolhead runs on: a timer list plus completion handles for
// suspension points (drip-mode waits, buffer-depth pacing). It carries
// core.ScheduleTimer's timer idea from 32-bit wrapping MCU ticks to real
// wall-clock seconds; timers are kept in an unsorted slice that RunOnce
// scans in full.
package reactor

import (
	"sync"
	"time"
)

// NOW and NEVER are sentinel deadlines, matching the source reactor's
// special update_timer values.
const (
	NOW   = 0.0
	NEVER = 1e18
)

// Timer is a handle returned by RegisterTimer. Callback returns the next
// wake time, or NEVER to stay dormant until UpdateTimer is called again.
type Timer struct {
	callback func(eventtime float64) float64
	when     float64
}

// Reactor is a single-mutator event loop: RunOnce must be driven from one
// goroutine, matching the "no locking needed, single mutator" model the
// planner relies on. Timer registration/update may be called from that same
// goroutine only.
type Reactor struct {
	start   time.Time
	mu      sync.Mutex
	timers  []*Timer
	stopped bool
}

// New creates a Reactor whose monotonic clock starts now.
func New() *Reactor {
	return &Reactor{start: time.Now()}
}

// Monotonic returns seconds elapsed since the reactor was created.
func (r *Reactor) Monotonic() float64 {
	return time.Since(r.start).Seconds()
}

// Pause blocks the calling goroutine until deadline (a Monotonic-scale
// timestamp); Stop does not cut it short. Returns the actual monotonic time
// at wakeup.
func (r *Reactor) Pause(deadline float64) float64 {
	now := r.Monotonic()
	if deadline > now {
		time.Sleep(time.Duration((deadline - now) * float64(time.Second)))
	}
	return r.Monotonic()
}

// RegisterTimer adds a timer that starts dormant (NEVER); call UpdateTimer
// to arm it. The handle is returned as interface{} so callers can depend on
// the toolhead.Reactor interface without importing this package.
func (r *Reactor) RegisterTimer(cb func(eventtime float64) float64) interface{} {
	t := &Timer{callback: cb, when: NEVER}
	r.mu.Lock()
	r.timers = append(r.timers, t)
	r.mu.Unlock()
	return t
}

// UpdateTimer reschedules t to fire at when (NOW fires immediately on the
// next RunOnce call; NEVER disarms it).
func (r *Reactor) UpdateTimer(handle interface{}, when float64) {
	t, ok := handle.(*Timer)
	if !ok {
		return
	}
	r.mu.Lock()
	t.when = when
	r.mu.Unlock()
}

// RunOnce dispatches every timer currently due, returning the earliest
// upcoming deadline among the rest (or NEVER if none are armed). Callers
// drive their own loop (e.g. flushHandler-style periodic pacing) rather than
// blocking inside the reactor, since the toolhead needs to interleave
// dispatch with its own move processing.
func (r *Reactor) RunOnce() float64 {
	now := r.Monotonic()

	r.mu.Lock()
	due := make([]*Timer, 0, len(r.timers))
	for _, t := range r.timers {
		if t.when <= now {
			due = append(due, t)
		}
	}
	r.mu.Unlock()

	for _, t := range due {
		next := t.callback(now)
		r.mu.Lock()
		t.when = next
		r.mu.Unlock()
	}

	next := NEVER
	r.mu.Lock()
	for _, t := range r.timers {
		if t.when < next {
			next = t.when
		}
	}
	r.mu.Unlock()
	return next
}

// Stop marks the reactor stopped; in-flight Pause/Wait calls still return
// normally, matching the source reactor's "disable pauses" shutdown note —
// callers should check IsStopped before issuing a new Pause.
func (r *Reactor) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// IsStopped reports whether Stop has been called.
func (r *Reactor) IsStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Completion is a single-value signalling handle, used by drip mode to learn
// about an externally-triggered event (e.g. an endstop) without polling.
type Completion struct {
	owner  *Reactor
	mu     sync.Mutex
	done   bool
	doneCh chan struct{}
}

// NewCompletion creates a fresh, untriggered completion bound to r's clock.
func (r *Reactor) NewCompletion() *Completion {
	return &Completion{owner: r, doneCh: make(chan struct{})}
}

// Test reports whether Complete has already been called.
func (c *Completion) Test() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Wait blocks until Complete is called or deadline (on the owning Reactor's
// Monotonic scale) elapses, returning whether completion fired.
func (c *Completion) Wait(deadline float64) bool {
	now := c.owner.Monotonic()
	if deadline <= now {
		return c.Test()
	}
	select {
	case <-c.doneCh:
		return true
	case <-time.After(time.Duration((deadline - now) * float64(time.Second))):
		return c.Test()
	}
}

// Complete signals the completion exactly once; subsequent calls are no-ops.
func (c *Completion) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	c.done = true
	close(c.doneCh)
}
