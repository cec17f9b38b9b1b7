package pager

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/repository"
)

// DefaultRetention is how long an unreferenced list is kept around.
const DefaultRetention = 10 * time.Minute

type entry[T any] struct {
	seq  *Sequencer[T]
	refs int
}

// Registry hands out one Sequencer per list key. Entries are reference
// counted; once the last consumer releases an entry it survives for the
// retention window so a quick return to the same search reuses its pages.
type Registry[T any] struct {
	mu        sync.Mutex
	fetcher   repository.Fetcher[T]
	entries   *cache.Cache
	retention time.Duration
	opts      []Option
	log       zerolog.Logger
}

// NewRegistry builds a registry over fetcher. A non-positive retention drops
// lists as soon as they are released. opts are passed to every sequencer.
func NewRegistry[T any](fetcher repository.Fetcher[T], retention time.Duration, opts ...Option) *Registry[T] {
	o := buildOptions(opts)
	r := &Registry[T]{
		fetcher:   fetcher,
		retention: retention,
		// no janitor goroutine: expired entries are swept on every call
		entries: cache.New(cache.NoExpiration, 0),
		opts:    opts,
		log:     o.log.With().Str("module", "pager").Str("component", "registry").Logger(),
	}
	r.entries.OnEvicted(func(key string, v interface{}) {
		if e, ok := v.(*entry[T]); ok {
			e.seq.Close()
		}
		r.log.Debug().Str("key", key).Msg("list evicted")
	})
	return r
}

// Acquire returns the sequencer for id's key, creating it if needed, and a
// release function that must be called once the consumer is done with it.
// When the entry already exists its page size follows id.
func (r *Registry[T]) Acquire(id Identity) (*Sequencer[T], func()) {
	id = id.Normalize()
	key := id.Key().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.DeleteExpired()

	var e *entry[T]
	if v, ok := r.entries.Get(key); ok {
		e = v.(*entry[T])
		e.refs++
		e.seq.Observe(id)
		r.log.Debug().Str("key", key).Int("refs", e.refs).Msg("list reused")
	} else {
		e = &entry[T]{seq: New(r.fetcher, id, r.opts...), refs: 1}
		r.log.Debug().Str("key", key).Msg("list created")
	}
	r.entries.Set(key, e, cache.NoExpiration)

	var once sync.Once
	return e.seq, func() {
		once.Do(func() { r.release(key, e) })
	}
}

func (r *Registry[T]) release(key string, e *entry[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.DeleteExpired()

	v, ok := r.entries.Get(key)
	if !ok || v.(*entry[T]) != e {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	if r.retention <= 0 {
		r.entries.Delete(key)
		return
	}
	r.entries.Set(key, e, r.retention)
	r.log.Debug().Str("key", key).Dur("retention", r.retention).Msg("list released")
}

// Len reports the number of lists still retained.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.DeleteExpired()
	return r.entries.ItemCount()
}

// Close drops every list and closes its sequencer.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries.Items() {
		r.entries.Delete(key)
	}
}
