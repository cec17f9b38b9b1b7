package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/clock"
	"github.com/maxviazov/lp-feed/internal/config"
	"github.com/maxviazov/lp-feed/internal/debounce"
	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/notify"
	"github.com/maxviazov/lp-feed/internal/pager"
	"github.com/maxviazov/lp-feed/internal/repository"
	"github.com/maxviazov/lp-feed/internal/throttle"
)

// Snapshot is what a feed consumer renders.
type Snapshot struct {
	RawSearch     string
	Search        string
	SearchPending bool
	Identity      pager.Identity
	State         pager.State[model.Lp]
	Items         []model.Lp
	Loads         int
	Throttle      throttle.Stats
}

// Feed is the LP browsing flow. Search input is debounced before it selects
// a list; reaching the end of the list asks for the next page through a
// throttle gate. Fetches run on goroutines owned by the feed.
type Feed struct {
	mu         sync.Mutex
	order      repository.Order
	pageSize   int
	registry   *pager.Registry[model.Lp]
	seq        *pager.Sequencer[model.Lp]
	release    func()
	search     *debounce.Value[string]
	next       *throttle.Gate[struct{}]
	loads      int
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	subs       *notify.Manager[Snapshot]
	staleAfter time.Duration
	log        zerolog.Logger
}

// NewFeed validates cfg, builds the feed and starts loading the unfiltered
// list. ctx bounds every fetch the feed starts.
func NewFeed(ctx context.Context, fetcher repository.Fetcher[model.Lp], sched clock.Scheduler, cfg config.FeedConfig, logger zerolog.Logger) (*Feed, error) {
	if err := newInvalidInput(validateFeedConfig(cfg)); err != nil {
		logger.Debug().Interface("field_errors", FieldErrors(err)).Msg("feed config validation failed")
		return nil, err
	}
	order, _ := repository.ParseOrder(cfg.Order)
	l := logger.With().Str("module", "service").Str("component", "feed").Logger()

	fctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		order:      order,
		pageSize:   cfg.PageSize,
		registry:   pager.NewRegistry(fetcher, cfg.Retention(), pager.WithLogger(logger), pager.WithClock(sched)),
		ctx:        fctx,
		cancel:     cancel,
		subs:       notify.NewManager[Snapshot](),
		staleAfter: cfg.StaleAfter(),
		log:        l,
	}
	f.search = debounce.New(sched, cfg.Debounce(), "", debounce.WithLogger(logger))
	f.search.OnCommit(f.onSearchCommitted)
	f.next = throttle.NewFunc(sched, cfg.Throttle(), f.loadMore, throttle.WithLogger(logger))

	f.switchTo(f.identity(""))
	return f, nil
}

// SetSearch feeds raw search input. The list switches once the input has
// been stable for the debounce delay.
func (f *Feed) SetSearch(raw string) error {
	if err := newInvalidInput(validateSearch(raw)); err != nil {
		return err
	}
	if f.isClosed() {
		return ErrClosed
	}
	f.search.Set(raw)
	f.publish()
	return nil
}

// SetOrder switches the sort order immediately.
func (f *Feed) SetOrder(order string) error {
	o, err := repository.ParseOrder(order)
	if err != nil {
		return newInvalidInput([]FieldError{{Field: "order", Message: "must be one of asc, desc, latest, oldest"}})
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.order = o
	f.mu.Unlock()
	f.switchTo(f.identity(f.search.Get()))
	return nil
}

// SetPageSize changes the page size for subsequent fetches without
// discarding the pages already loaded.
func (f *Feed) SetPageSize(n int) error {
	if !IsValidPageSize(n) {
		return newInvalidInput([]FieldError{{Field: "page_size", Message: "must be between 1 and 100"}})
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.pageSize = n
	f.mu.Unlock()
	f.switchTo(f.identity(f.search.Get()))
	return nil
}

// ReachedEnd signals that the end-of-list sentinel became visible.
func (f *Feed) ReachedEnd() {
	f.next.Trigger(struct{}{})
}

// Retry re-issues the fetch that failed last, with the same cursor, blocking
// until it completes. It is a no-op when the current list holds no error.
func (f *Feed) Retry(ctx context.Context) error {
	seq := f.current()
	if seq == nil || f.isClosed() {
		return ErrClosed
	}
	_, err := seq.Retry(ctx)
	if errors.Is(err, pager.ErrNothingToRetry) {
		return nil
	}
	f.publish()
	return err
}

// Snapshot returns the current view of the feed.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	seq := f.seq
	loads := f.loads
	f.mu.Unlock()

	snap := Snapshot{
		RawSearch:     f.search.Raw(),
		Search:        f.search.Get(),
		SearchPending: f.search.Pending(),
		Loads:         loads,
		Throttle:      f.next.Stats(),
	}
	if seq != nil {
		snap.State = seq.State()
		snap.Identity = snap.State.Identity
		snap.Items = snap.State.Items()
	}
	return snap
}

// Subscribe returns a channel of snapshots published after every change.
func (f *Feed) Subscribe() *notify.Subscription[Snapshot] {
	return f.subs.Subscribe()
}

// Close stops the timers, abandons pending fetches and waits for the feed's
// goroutines to exit.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	release := f.release
	f.release = nil
	f.mu.Unlock()

	f.search.Close()
	f.next.Close()
	f.cancel()
	f.wg.Wait()

	if release != nil {
		release()
	}
	f.registry.Close()
	f.subs.Close()
	f.log.Debug().Msg("feed closed")
}

func (f *Feed) identity(search string) pager.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pager.Identity{Search: search, Order: f.order, PageSize: f.pageSize}.Normalize()
}

func (f *Feed) current() *pager.Sequencer[model.Lp] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

func (f *Feed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Feed) onSearchCommitted(term string) {
	f.switchTo(f.identity(term))
}

// switchTo makes id the current list, reusing a retained one when possible,
// and loads its first page when it has none or they are stale.
func (f *Feed) switchTo(id pager.Identity) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.seq != nil && f.seq.Identity().Key() == id.Key() {
		seq := f.seq
		f.mu.Unlock()
		seq.Observe(id)
		f.publish()
		return
	}
	seq, release := f.registry.Acquire(id)
	previous := f.release
	f.seq, f.release = seq, release
	f.mu.Unlock()

	if previous != nil {
		previous()
	}
	f.log.Info().Str("search", id.Search).Str("order", string(id.Order)).Int("page_size", id.PageSize).Msg("list selected")

	if seq.IsStale(f.staleAfter) {
		f.spawn("first", func(ctx context.Context) error {
			_, err := seq.FetchFirst(ctx, id)
			return err
		})
	}
	f.publish()
}

// loadMore is the throttled action: it only asks for the next page when the
// current list has one and nothing is loading.
func (f *Feed) loadMore() {
	seq := f.current()
	if seq == nil {
		return
	}
	st := seq.State()
	if st.Loading() || !st.HasNext {
		f.log.Debug().Bool("loading", st.Loading()).Bool("has_next", st.HasNext).Msg("load more skipped")
		return
	}
	f.mu.Lock()
	f.loads++
	n := f.loads
	f.mu.Unlock()
	f.log.Debug().Int("load", n).Int("pages", len(st.Pages)).Msg("load more")

	f.spawn("next", func(ctx context.Context) error {
		_, err := seq.FetchNext(ctx)
		return err
	})
}

func (f *Feed) spawn(kind string, fn func(ctx context.Context) error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		err := fn(f.ctx)
		switch {
		case err == nil:
		case errors.Is(err, pager.ErrSuperseded), errors.Is(err, pager.ErrNoMore), errors.Is(err, pager.ErrClosed), errors.Is(err, context.Canceled):
			f.log.Debug().Err(err).Str("fetch", kind).Msg("fetch dropped")
		default:
			f.log.Warn().Err(err).Str("fetch", kind).Bool("transient", repository.IsTransient(err)).Msg("fetch failed")
		}
		f.publish()
	}()
}

func (f *Feed) publish() {
	if f.isClosed() {
		return
	}
	f.subs.Publish(f.Snapshot())
}
