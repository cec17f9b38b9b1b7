package repository

import (
	"context"

	"github.com/maxviazov/lp-feed/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to check the data source before starting interactive work.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Fetcher is the transport boundary of the pager: it returns the page that
// starts at q.Cursor. Implementations surface ErrTransport-wrapped errors for
// network and status failures and never retry on their own.
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, q Query) (CursorPage[T], error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc[T any] func(ctx context.Context, q Query) (CursorPage[T], error)

// FetchPage implements Fetcher.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, q Query) (CursorPage[T], error) {
	return f(ctx, q)
}

// CommentFetcher pages through the comments of one LP. The cursor and
// ordering rules are the same as for Fetcher; q.Search is ignored.
type CommentFetcher interface {
	FetchComments(ctx context.Context, lpID int64, q Query) (CursorPage[model.Comment], error)
}

// CommentsOf binds f to a single LP so its comments can be paged like any other list.
func CommentsOf(f CommentFetcher, lpID int64) Fetcher[model.Comment] {
	return FetcherFunc[model.Comment](func(ctx context.Context, q Query) (CursorPage[model.Comment], error) {
		return f.FetchComments(ctx, lpID, q)
	})
}
