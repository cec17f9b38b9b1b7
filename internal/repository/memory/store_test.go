package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/repository"
	"github.com/maxviazov/lp-feed/internal/repository/contract"
	"github.com/maxviazov/lp-feed/internal/repository/memory"
)

func TestStoreContract(t *testing.T) {
	contract.RunFetcherContract(t, func(t *testing.T) (repository.Fetcher[model.Lp], func(...string), func()) {
		s := memory.NewStore()
		seed := func(titles ...string) {
			for _, title := range titles {
				s.Insert(model.Lp{Title: title, Published: true})
			}
		}
		return s, seed, func() {}
	})
}

func TestStore_InsertDoesNotShiftLaterPages(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	s.Seed("Record", 5)

	first, err := s.FetchPage(ctx, repository.Query{Limit: 2, Order: repository.OrderDesc})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "Record #5", first.Items[0].Title)

	// a new record lands at the head of a desc listing
	s.Insert(model.Lp{Title: "Fresh"})

	second, err := s.FetchPage(ctx, repository.Query{Cursor: first.NextCursor, Limit: 2, Order: repository.OrderDesc})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "Record #3", second.Items[0].Title)
	assert.Equal(t, "Record #2", second.Items[1].Title)
}

func TestStore_SearchMatchesTags(t *testing.T) {
	s := memory.NewStore()
	s.Insert(model.Lp{Title: "Untitled", Tags: []model.Tag{{ID: 1, Name: "Jazz"}}})
	s.Insert(model.Lp{Title: "Other"})

	page, err := s.FetchPage(context.Background(), repository.Query{Limit: 10, Search: "  JAZZ "})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Untitled", page.Items[0].Title)
}

func TestStore_RejectsBadQueries(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	_, err := s.FetchPage(ctx, repository.Query{Limit: 0})
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
	_, err = s.FetchPage(ctx, repository.Query{Limit: 1, Order: "sideways"})
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
	_, err = s.FetchPage(ctx, repository.Query{Limit: 1, Cursor: "abc"})
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
	assert.Equal(t, 0, s.Calls())
}

func TestStore_FailWith(t *testing.T) {
	s := memory.NewStore()
	s.Seed("x", 1)
	boom := errors.New("boom")

	s.FailWith(boom)
	_, err := s.FetchPage(context.Background(), repository.Query{Limit: 1})
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	page, err := s.FetchPage(context.Background(), repository.Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, s.Calls())
}

func TestStore_CancelledContext(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FetchPage(ctx, repository.Query{Limit: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
