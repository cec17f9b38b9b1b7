// Package throttle bounds how often an action may run. A trigger that
// arrives inside the quiet window is deferred to the end of the window
// instead of being dropped, and later triggers in the same window replace it.
package throttle

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/clock"
)

// Stats counts what the gate did with its triggers.
type Stats struct {
	Triggers  int
	Immediate int
	Deferred  int
	// Collapsed counts deferred calls replaced by a later trigger before firing.
	Collapsed int
}

// Option customises a Gate.
type Option func(*options)

type options struct {
	log zerolog.Logger
}

// WithLogger attaches a logger for debug tracing of runs.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Gate wraps an action taking an argument of type A.
type Gate[A any] struct {
	mu      sync.Mutex
	sched   clock.Scheduler
	delay   time.Duration
	action  func(A)
	lastRun time.Time
	ran     bool
	pending clock.Timer
	token   uint64
	closed  bool
	stats   Stats
	log     zerolog.Logger
}

// New returns a gate that runs action at most once per delay, plus at most
// one trailing call at the window boundary.
func New[A any](sched clock.Scheduler, delay time.Duration, action func(A), opts ...Option) *Gate[A] {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if delay < 0 {
		delay = 0
	}
	return &Gate[A]{
		sched:  sched,
		delay:  delay,
		action: action,
		log:    o.log.With().Str("module", "throttle").Logger(),
	}
}

// NewFunc is New for actions without arguments.
func NewFunc(sched clock.Scheduler, delay time.Duration, action func(), opts ...Option) *Gate[struct{}] {
	return New(sched, delay, func(struct{}) { action() }, opts...)
}

// Trigger asks for the action to run with a. It runs now if the window since
// the last run has closed, otherwise it is scheduled for the moment it closes.
func (g *Gate[A]) Trigger(a A) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.stats.Triggers++
	now := g.sched.Now()
	elapsed := now.Sub(g.lastRun)

	if !g.ran || elapsed >= g.delay {
		g.cancelPendingLocked()
		g.lastRun = now
		g.ran = true
		g.stats.Immediate++
		g.mu.Unlock()

		g.log.Debug().Dur("since_last_run", elapsed).Msg("run immediately")
		g.action(a)
		return
	}

	if g.cancelPendingLocked() {
		g.stats.Collapsed++
	}
	remaining := g.delay - elapsed
	g.token++
	token := g.token
	g.pending = g.sched.AfterFunc(remaining, func() { g.fire(token, a) })
	g.mu.Unlock()

	g.log.Debug().Dur("remaining", remaining).Msg("run deferred")
}

// Pending reports whether a deferred call is scheduled.
func (g *Gate[A]) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Stats returns a copy of the gate counters.
func (g *Gate[A]) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// Close cancels the deferred call, if any, without running it.
// Later triggers are ignored.
func (g *Gate[A]) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cancelPendingLocked()
}

func (g *Gate[A]) fire(token uint64, a A) {
	g.mu.Lock()
	if g.closed || token != g.token || g.pending == nil {
		g.mu.Unlock()
		return
	}
	g.pending = nil
	g.lastRun = g.sched.Now()
	g.stats.Deferred++
	g.mu.Unlock()

	g.log.Debug().Dur("delay", g.delay).Msg("deferred run")
	g.action(a)
}

// cancelPendingLocked stops the deferred call and reports whether one existed.
func (g *Gate[A]) cancelPendingLocked() bool {
	if g.pending == nil {
		return false
	}
	g.pending.Stop()
	g.pending = nil
	g.token++
	return true
}
