package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/clock"
	"github.com/maxviazov/lp-feed/internal/config"
	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/notify"
	"github.com/maxviazov/lp-feed/internal/pager"
	"github.com/maxviazov/lp-feed/internal/repository"
)

// Comments pages through the comments of one LP. It owns its own sequencer,
// so its pages, cursor and errors never mix with the LP feed or with the
// comments of another LP. Calls block until the data source answers.
type Comments struct {
	lpID     int64
	seq      *pager.Sequencer[model.Comment]
	mu       sync.Mutex
	order    repository.Order
	pageSize int
	closed   bool
	log      zerolog.Logger
}

// NewComments builds the comment list of lpID. Nothing is fetched until Load.
func NewComments(src repository.CommentFetcher, lpID int64, sched clock.Scheduler, cfg config.FeedConfig, logger zerolog.Logger) (*Comments, error) {
	ferrs := validateFeedConfig(cfg)
	if lpID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "lp_id", Message: "must be > 0"})
	}
	if err := newInvalidInput(ferrs); err != nil {
		return nil, err
	}
	order, _ := repository.ParseOrder(cfg.Order)
	c := &Comments{
		lpID:     lpID,
		order:    order,
		pageSize: cfg.PageSize,
		log:      logger.With().Str("module", "service").Str("component", "comments").Int64("lp_id", lpID).Logger(),
	}
	c.seq = pager.New(repository.CommentsOf(src, lpID), c.identity(), pager.WithLogger(logger), pager.WithClock(sched))
	return c, nil
}

// LpID returns the LP whose comments are listed.
func (c *Comments) LpID() int64 { return c.lpID }

// Load fetches the first page, replacing any pages already held.
func (c *Comments) Load(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	_, err := c.seq.FetchFirst(ctx, c.identity())
	return c.settle(err)
}

// LoadMore fetches the page after the latest one. It is a no-op when the
// list is exhausted or a fetch is already pending.
func (c *Comments) LoadMore(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	_, err := c.seq.FetchNext(ctx)
	if errors.Is(err, pager.ErrNoMore) {
		c.log.Debug().Err(err).Msg("load more skipped")
		return nil
	}
	return c.settle(err)
}

// SetOrder switches the sort order and reloads from the first page.
func (c *Comments) SetOrder(ctx context.Context, order string) error {
	o, err := repository.ParseOrder(order)
	if err != nil {
		return InvalidField("order", "must be one of asc, desc, latest, oldest")
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.order = o
	c.mu.Unlock()
	return c.Load(ctx)
}

// Retry re-issues the fetch that failed last. It is a no-op when there is none.
func (c *Comments) Retry(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	_, err := c.seq.Retry(ctx)
	if errors.Is(err, pager.ErrNothingToRetry) {
		return nil
	}
	return c.settle(err)
}

// State returns the pages loaded so far.
func (c *Comments) State() pager.State[model.Comment] { return c.seq.State() }

// Items returns every loaded comment in page order.
func (c *Comments) Items() []model.Comment { return c.seq.Items() }

// Subscribe returns a channel receiving the list state after every change.
func (c *Comments) Subscribe() *notify.Subscription[pager.State[model.Comment]] {
	return c.seq.Subscribe()
}

// Close abandons a pending fetch and closes subscriptions.
func (c *Comments) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.seq.Close()
}

func (c *Comments) identity() pager.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pager.Identity{Order: c.order, PageSize: c.pageSize}.Normalize()
}

func (c *Comments) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// settle maps pager outcomes to what callers act on. A response dropped by a
// concurrent order change is not an error for the caller that started it.
func (c *Comments) settle(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pager.ErrSuperseded):
		c.log.Debug().Err(err).Msg("comments response dropped")
		return nil
	case errors.Is(err, pager.ErrClosed):
		return ErrClosed
	default:
		c.log.Warn().Err(err).Bool("transient", repository.IsTransient(err)).Msg("comments fetch failed")
		return err
	}
}
