// Package debounce holds a value that only propagates after it has stopped
// changing for a fixed delay. Intermediate values are discarded, not queued.
package debounce

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/clock"
	"github.com/maxviazov/lp-feed/internal/notify"
)

// Option customises a Value.
type Option func(*options)

type options struct {
	log zerolog.Logger
}

// WithLogger attaches a logger for debug tracing of value transitions.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Value is a debounced holder. Set records a raw value; Get returns the
// committed one, which lags Set by at least the configured delay.
type Value[T any] struct {
	mu        sync.Mutex
	sched     clock.Scheduler
	delay     time.Duration
	raw       T
	committed T
	timer     clock.Timer
	token     uint64
	closed    bool
	onCommit  []func(T)
	subs      *notify.Manager[T]
	log       zerolog.Logger
}

// New returns a holder whose raw and committed values both start at initial.
func New[T any](sched clock.Scheduler, delay time.Duration, initial T, opts ...Option) *Value[T] {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if delay < 0 {
		delay = 0
	}
	return &Value[T]{
		sched:     sched,
		delay:     delay,
		raw:       initial,
		committed: initial,
		subs:      notify.NewManager[T](),
		log:       o.log.With().Str("module", "debounce").Logger(),
	}
}

// Set replaces the raw value and restarts the commit timer.
// The commit never happens synchronously, even with a zero delay.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.raw = x
	if v.timer != nil {
		v.timer.Stop()
		v.log.Debug().Msg("timer reset")
	}
	v.token++
	token := v.token
	v.timer = v.sched.AfterFunc(v.delay, func() { v.fire(token, x) })
	v.log.Debug().Interface("value", x).Dur("delay", v.delay).Msg("value changed")
}

// Get returns the committed value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.committed
}

// Raw returns the latest value passed to Set.
func (v *Value[T]) Raw() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.raw
}

// Pending reports whether a commit is scheduled.
func (v *Value[T]) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timer != nil
}

// OnCommit registers f to run after every commit, outside the holder's lock.
func (v *Value[T]) OnCommit(f func(T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onCommit = append(v.onCommit, f)
}

// Subscribe returns a channel of committed values.
func (v *Value[T]) Subscribe() *notify.Subscription[T] {
	return v.subs.Subscribe()
}

// Close cancels any pending commit. No commit happens once Close returns.
func (v *Value[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.token++
	v.mu.Unlock()
	v.subs.Close()
}

func (v *Value[T]) fire(token uint64, x T) {
	v.mu.Lock()
	// a stopped timer can still have its callback in flight
	if v.closed || token != v.token {
		v.mu.Unlock()
		return
	}
	v.timer = nil
	v.committed = x
	callbacks := slices.Clone(v.onCommit)
	v.mu.Unlock()

	v.log.Debug().Interface("value", x).Msg("committed")
	for _, f := range callbacks {
		f(x)
	}
	v.subs.Publish(x)
}
