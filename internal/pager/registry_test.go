package pager_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/lp-feed/internal/pager"
	"github.com/maxviazov/lp-feed/internal/repository"
)

func TestRegistry_SharesSequencerPerKey(t *testing.T) {
	r := pager.NewRegistry[int](newBook(), time.Minute)
	defer r.Close()

	a, releaseA := r.Acquire(pager.Identity{Search: "blue"})
	b, releaseB := r.Acquire(pager.Identity{Search: " blue ", PageSize: 30})
	defer releaseA()
	defer releaseB()

	assert.Same(t, a, b)
	assert.Equal(t, 30, a.Identity().PageSize)
	assert.Equal(t, 1, r.Len())

	c, releaseC := r.Acquire(pager.Identity{Search: "blue", Order: repository.OrderAsc})
	defer releaseC()
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RetainsReleasedList(t *testing.T) {
	ctx := context.Background()
	book := newBook()
	r := pager.NewRegistry[int](book, time.Minute)
	defer r.Close()

	s, release := r.Acquire(pager.Identity{})
	_, err := s.FetchFirst(ctx, pager.Identity{})
	require.NoError(t, err)
	release()
	release() // second call is a no-op

	assert.Equal(t, 1, r.Len())
	again, releaseAgain := r.Acquire(pager.Identity{})
	defer releaseAgain()
	assert.Same(t, s, again)
	assert.Equal(t, []int{1, 2}, again.Items())
	assert.Len(t, book.calls(), 1)
}

func TestRegistry_ZeroRetentionDropsOnRelease(t *testing.T) {
	r := pager.NewRegistry[int](newBook(), 0)
	defer r.Close()

	s, release := r.Acquire(pager.Identity{})
	_, release2 := r.Acquire(pager.Identity{})
	release()
	assert.Equal(t, 1, r.Len(), "still referenced")
	release2()
	assert.Equal(t, 0, r.Len())

	_, err := s.FetchFirst(context.Background(), pager.Identity{})
	assert.ErrorIs(t, err, pager.ErrClosed)

	fresh, releaseFresh := r.Acquire(pager.Identity{})
	defer releaseFresh()
	assert.NotSame(t, s, fresh)
}

func TestRegistry_ExpiresAfterRetention(t *testing.T) {
	r := pager.NewRegistry[int](newBook(), 30*time.Millisecond)
	defer r.Close()

	s, release := r.Acquire(pager.Identity{Search: "old"})
	release()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	_, err := s.FetchFirst(context.Background(), pager.Identity{Search: "old"})
	assert.ErrorIs(t, err, pager.ErrClosed)
}

func TestRegistry_HeldListNeverExpires(t *testing.T) {
	r := pager.NewRegistry[int](newBook(), 10*time.Millisecond)
	defer r.Close()

	s, release := r.Acquire(pager.Identity{})
	defer release()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, r.Len())

	again, releaseAgain := r.Acquire(pager.Identity{})
	defer releaseAgain()
	assert.Same(t, s, again)
}

func TestRegistry_CloseClosesEverySequencer(t *testing.T) {
	r := pager.NewRegistry[int](newBook(), time.Minute)
	a, _ := r.Acquire(pager.Identity{Search: "a"})
	b, _ := r.Acquire(pager.Identity{Search: "b"})
	r.Close()

	assert.Equal(t, 0, r.Len())
	_, err := a.FetchFirst(context.Background(), pager.Identity{Search: "a"})
	assert.ErrorIs(t, err, pager.ErrClosed)
	_, err = b.FetchFirst(context.Background(), pager.Identity{Search: "b"})
	assert.ErrorIs(t, err, pager.ErrClosed)
}
