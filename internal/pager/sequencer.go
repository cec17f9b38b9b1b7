// Package pager drives cursor-paginated fetches of one logical list.
//
// A Sequencer owns the pages of a single Identity. Pages are requested
// strictly one after another using the cursor returned by the previous page,
// so the flattened list has no gaps or reordering as long as the data source
// issues monotonic cursors. A Registry shares sequencers between consumers
// and forgets unused ones after a retention window.
package pager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/clock"
	"github.com/maxviazov/lp-feed/internal/notify"
	"github.com/maxviazov/lp-feed/internal/repository"
)

// Page is one fetched page and its position in the list.
type Page[T any] struct {
	repository.CursorPage[T]
	Seq       int
	FetchedAt time.Time
}

// State is a snapshot of a sequencer.
type State[T any] struct {
	Identity     Identity
	Pages        []Page[T]
	LoadingFirst bool
	LoadingNext  bool
	HasNext      bool
	Err          error
	Generation   uint64
}

// Loading reports whether any fetch is pending.
func (s State[T]) Loading() bool { return s.LoadingFirst || s.LoadingNext }

// Items concatenates the items of every page in fetch order. Duplicates
// across pages are kept as the data source returned them.
func (s State[T]) Items() []T {
	n := 0
	for _, p := range s.Pages {
		n += len(p.Items)
	}
	out := make([]T, 0, n)
	for _, p := range s.Pages {
		out = append(out, p.Items...)
	}
	return out
}

// Option customises a Sequencer.
type Option func(*options)

type options struct {
	log   zerolog.Logger
	sched clock.Scheduler
}

// WithLogger sets the logger used for fetch tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets the time source used to stamp pages.
func WithClock(s clock.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop(), sched: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Sequencer accumulates the pages of one identity. At most one fetch is in
// flight at any time; a reset abandons it and its result is discarded.
type Sequencer[T any] struct {
	mu           sync.Mutex
	fetcher      repository.Fetcher[T]
	id           Identity
	pages        []Page[T]
	loadingFirst bool
	loadingNext  bool
	err          error
	failed       *repository.Query
	failedSeq    int
	gen          uint64
	cancel       context.CancelFunc
	closed       bool
	sched        clock.Scheduler
	subs         *notify.Manager[State[T]]
	log          zerolog.Logger
}

// New returns an empty sequencer for id.
func New[T any](fetcher repository.Fetcher[T], id Identity, opts ...Option) *Sequencer[T] {
	o := buildOptions(opts)
	return &Sequencer[T]{
		fetcher: fetcher,
		id:      id.Normalize(),
		sched:   o.sched,
		subs:    notify.NewManager[State[T]](),
		log:     o.log.With().Str("module", "pager").Str("component", "sequencer").Logger(),
	}
}

// Identity returns the current identity.
func (s *Sequencer[T]) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Reset discards every page and abandons any pending fetch, then adopts id.
func (s *Sequencer[T]) Reset(id Identity) {
	s.mu.Lock()
	s.resetLocked(id.Normalize())
	s.publishLocked()
	s.mu.Unlock()
}

// Observe adopts id, resetting only when the search term or order changed.
// A new page size applies to subsequent fetches. It reports whether a reset happened.
func (s *Sequencer[T]) Observe(id Identity) bool {
	s.mu.Lock()
	reset, changed := s.observeLocked(id.Normalize())
	if changed {
		s.publishLocked()
	}
	s.mu.Unlock()
	return reset
}

// FetchFirst adopts id (see Observe) and loads the first page, replacing any
// pages already held. It blocks until the data source answers or ctx ends.
func (s *Sequencer[T]) FetchFirst(ctx context.Context, id Identity) (Page[T], error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Page[T]{}, ErrClosed
	}
	s.observeLocked(id.Normalize())
	if s.loadingFirst || s.loadingNext {
		s.mu.Unlock()
		return Page[T]{}, ErrInFlight
	}
	s.loadingFirst = true
	q := s.id.query(repository.InitialCursor)
	return s.run(ctx, q, 0)
}

// FetchNext loads the page after the latest one. It fails with ErrNoMore
// when no page is loaded yet or the latest page has no successor, and with
// ErrInFlight when another fetch is pending. Neither case touches the state.
func (s *Sequencer[T]) FetchNext(ctx context.Context) (Page[T], error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Page[T]{}, ErrClosed
	}
	if s.loadingFirst || s.loadingNext {
		s.mu.Unlock()
		return Page[T]{}, ErrInFlight
	}
	if len(s.pages) == 0 {
		s.mu.Unlock()
		return Page[T]{}, fmt.Errorf("%w: first page not loaded", ErrNoMore)
	}
	last := s.pages[len(s.pages)-1]
	if !last.HasNext {
		s.mu.Unlock()
		return Page[T]{}, ErrNoMore
	}
	s.loadingNext = true
	q := s.id.query(last.NextCursor)
	return s.run(ctx, q, len(s.pages))
}

// Retry re-issues the request that failed last, with the cursor and limit it
// was sent with. A failed first page replaces the pages on success just like
// FetchFirst. It returns ErrNothingToRetry when the latest fetch succeeded.
func (s *Sequencer[T]) Retry(ctx context.Context) (Page[T], error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Page[T]{}, ErrClosed
	}
	if s.loadingFirst || s.loadingNext {
		s.mu.Unlock()
		return Page[T]{}, ErrInFlight
	}
	if s.failed == nil {
		s.mu.Unlock()
		return Page[T]{}, ErrNothingToRetry
	}
	q, seq := *s.failed, s.failedSeq
	if seq == 0 {
		s.loadingFirst = true
	} else {
		s.loadingNext = true
	}
	s.log.Debug().Int("seq", seq).Str("cursor", string(q.Cursor)).Msg("retrying failed fetch")
	return s.run(ctx, q, seq)
}

// run performs the fetch for page seq. It is entered with s.mu held and a
// loading flag set; it releases the lock while waiting on the data source.
func (s *Sequencer[T]) run(ctx context.Context, q repository.Query, seq int) (Page[T], error) {
	gen := s.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.err = nil
	s.publishLocked()
	s.mu.Unlock()
	defer cancel()

	start := s.sched.Now()
	s.log.Debug().Str("cursor", string(q.Cursor)).Int("limit", q.Limit).Str("search", q.Search).Str("order", string(q.Order)).Int("seq", seq).Msg("fetching page")
	cp, err := s.fetcher.FetchPage(fetchCtx, q)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug().Int("seq", seq).Str("search", q.Search).Msg("dropping response for reset list")
		return Page[T]{}, ErrSuperseded
	}
	s.cancel = nil
	s.loadingFirst = false
	s.loadingNext = false
	if err != nil {
		s.err = err
		s.failed, s.failedSeq = &q, seq
		s.publishLocked()
		s.mu.Unlock()
		s.log.Error().Err(err).Int("seq", seq).Str("cursor", string(q.Cursor)).Msg("fetch page failed")
		return Page[T]{}, fmt.Errorf("fetch page %d: %w", seq, err)
	}

	page := Page[T]{CursorPage: cp, Seq: seq, FetchedAt: s.sched.Now()}
	if seq == 0 {
		s.pages = []Page[T]{page}
	} else {
		s.pages = append(s.pages, page)
	}
	s.failed = nil
	s.publishLocked()
	s.mu.Unlock()

	s.log.Debug().Int("seq", seq).Int("items", len(cp.Items)).Bool("has_next", cp.HasNext).Str("next_cursor", string(cp.NextCursor)).Dur("took", page.FetchedAt.Sub(start)).Msg("page stored")
	return page, nil
}

// State returns a snapshot.
func (s *Sequencer[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Items returns the flattened list.
func (s *Sequencer[T]) Items() []T {
	return s.State().Items()
}

// FetchedAt returns when the first page was last loaded, or the zero time.
func (s *Sequencer[T]) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 0 {
		return time.Time{}
	}
	return s.pages[0].FetchedAt
}

// IsStale reports whether the list is empty or its first page is older than staleAfter.
func (s *Sequencer[T]) IsStale(staleAfter time.Duration) bool {
	at := s.FetchedAt()
	if at.IsZero() {
		return true
	}
	return s.sched.Now().Sub(at) >= staleAfter
}

// Subscribe returns a channel receiving a snapshot after every state change.
func (s *Sequencer[T]) Subscribe() *notify.Subscription[State[T]] {
	return s.subs.Subscribe()
}

// Close abandons any pending fetch and closes subscriptions.
func (s *Sequencer[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.abandonLocked()
	s.mu.Unlock()
	s.subs.Close()
}

func (s *Sequencer[T]) observeLocked(id Identity) (reset, changed bool) {
	if id.Key() != s.id.Key() {
		s.resetLocked(id)
		return true, true
	}
	if id.PageSize != s.id.PageSize {
		s.id.PageSize = id.PageSize
		return false, true
	}
	return false, false
}

func (s *Sequencer[T]) resetLocked(id Identity) {
	s.log.Debug().Str("from", s.id.Key().String()).Str("to", id.Key().String()).Int("pages", len(s.pages)).Msg("reset")
	s.abandonLocked()
	s.id = id
	s.pages = nil
	s.err = nil
	s.failed = nil
}

func (s *Sequencer[T]) abandonLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loadingFirst = false
	s.loadingNext = false
}

// publishLocked sends the current state while s.mu is held, so subscribers
// observe snapshots in the order the state changed. Publish never blocks.
func (s *Sequencer[T]) publishLocked() {
	s.subs.Publish(s.stateLocked())
}

func (s *Sequencer[T]) stateLocked() State[T] {
	st := State[T]{
		Identity:     s.id,
		Pages:        append([]Page[T](nil), s.pages...),
		LoadingFirst: s.loadingFirst,
		LoadingNext:  s.loadingNext,
		Err:          s.err,
		Generation:   s.gen,
	}
	if n := len(s.pages); n > 0 {
		st.HasNext = s.pages[n-1].HasNext
	}
	return st
}
