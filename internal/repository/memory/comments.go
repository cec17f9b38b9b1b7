package memory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/repository"
)

// AddComment appends c to the comments of c.LpID with the next comment id.
func (s *Store) AddComment(c model.Comment) model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextCommentID
	s.nextCommentID++
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.comments[c.LpID] = append(s.comments[c.LpID], c)
	return c
}

// SeedComments adds n comments to lpID with contents "<prefix> #i".
func (s *Store) SeedComments(lpID int64, prefix string, n int) {
	for i := 1; i <= n; i++ {
		s.AddComment(model.Comment{LpID: lpID, Content: fmt.Sprintf("%s #%d", prefix, i)})
	}
}

// CommentCalls reports how many comment fetches for lpID reached the store.
func (s *Store) CommentCalls(lpID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commentCalls[lpID]
}

// FetchComments implements repository.CommentFetcher. Unlike the LP list,
// comment cursors are offsets into the ordered list, so a comment added
// while paging shifts later pages by one.
func (s *Store) FetchComments(ctx context.Context, lpID int64, q repository.Query) (repository.CursorPage[model.Comment], error) {
	if err := ctx.Err(); err != nil {
		return repository.CursorPage[model.Comment]{}, err
	}
	if lpID <= 0 {
		return repository.CursorPage[model.Comment]{}, fmt.Errorf("%w: lp id must be > 0", repository.ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		return repository.CursorPage[model.Comment]{}, fmt.Errorf("%w: limit must be > 0", repository.ErrInvalidQuery)
	}
	if q.Order == "" {
		q.Order = repository.OrderDesc
	}
	if !q.Order.Valid() {
		return repository.CursorPage[model.Comment]{}, fmt.Errorf("%w: order %q", repository.ErrInvalidQuery, q.Order)
	}
	offset := 0
	if q.Cursor != repository.InitialCursor {
		v, err := strconv.Atoi(string(q.Cursor))
		if err != nil || v < 0 {
			return repository.CursorPage[model.Comment]{}, fmt.Errorf("%w: cursor %q", repository.ErrInvalidQuery, q.Cursor)
		}
		offset = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentCalls[lpID]++
	if s.fail != nil {
		return repository.CursorPage[model.Comment]{}, s.fail
	}

	// comments are stored oldest first
	all := s.comments[lpID]
	ordered := make([]model.Comment, len(all))
	for i, c := range all {
		if q.Order == repository.OrderDesc {
			ordered[len(all)-1-i] = c
		} else {
			ordered[i] = c
		}
	}

	out := repository.CursorPage[model.Comment]{Items: []model.Comment{}}
	if offset < len(ordered) {
		end := min(offset+q.Limit, len(ordered))
		out.Items = ordered[offset:end]
		out.HasNext = end < len(ordered)
		if out.HasNext {
			out.NextCursor = repository.Cursor(strconv.Itoa(end))
		}
	}
	return out, nil
}

var _ repository.CommentFetcher = (*Store)(nil)
