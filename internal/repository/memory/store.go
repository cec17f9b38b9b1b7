// Package memory is an in-process LP data source with server-issued cursors.
// It backs the demo mode of the CLI and the tests of the layers above.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/repository"
)

// Store keeps LPs ordered by id. The cursor of a page is the id of its last
// item, so inserts between page loads never shift later pages.
type Store struct {
	mu            sync.Mutex
	nextID        int64
	lps           []model.Lp
	nextCommentID int64
	comments      map[int64][]model.Comment
	commentCalls  map[int64]int
	calls         int
	fail          error
}

func NewStore() *Store {
	return &Store{
		nextID:        1,
		nextCommentID: 1,
		comments:      make(map[int64][]model.Comment),
		commentCalls:  make(map[int64]int),
	}
}

// Seed inserts n generated LPs titled "<prefix> #i".
func (s *Store) Seed(prefix string, n int) {
	for i := 1; i <= n; i++ {
		s.Insert(model.Lp{Title: fmt.Sprintf("%s #%d", prefix, i), Published: true})
	}
}

// Insert adds lp with the next id and returns it.
func (s *Store) Insert(lp model.Lp) model.Lp {
	s.mu.Lock()
	defer s.mu.Unlock()
	lp.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	if lp.CreatedAt.IsZero() {
		lp.CreatedAt = now
	}
	lp.UpdatedAt = now
	s.lps = append(s.lps, lp)
	return lp
}

// FailWith makes every following fetch return err until called with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Calls reports how many fetches reached the store.
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Ping implements repository.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// FetchPage implements repository.Fetcher.
func (s *Store) FetchPage(ctx context.Context, q repository.Query) (repository.CursorPage[model.Lp], error) {
	if err := ctx.Err(); err != nil {
		return repository.CursorPage[model.Lp]{}, err
	}
	if q.Limit <= 0 {
		return repository.CursorPage[model.Lp]{}, fmt.Errorf("%w: limit must be > 0", repository.ErrInvalidQuery)
	}
	if q.Order == "" {
		q.Order = repository.OrderDesc
	}
	if !q.Order.Valid() {
		return repository.CursorPage[model.Lp]{}, fmt.Errorf("%w: order %q", repository.ErrInvalidQuery, q.Order)
	}
	var after int64
	if q.Cursor != repository.InitialCursor {
		v, err := strconv.ParseInt(string(q.Cursor), 10, 64)
		if err != nil {
			return repository.CursorPage[model.Lp]{}, fmt.Errorf("%w: cursor %q", repository.ErrInvalidQuery, q.Cursor)
		}
		after = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return repository.CursorPage[model.Lp]{}, s.fail
	}

	matches := make([]model.Lp, 0, len(s.lps))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, lp := range s.lps {
		if needle != "" && !matchesSearch(lp, needle) {
			continue
		}
		if q.Cursor != repository.InitialCursor {
			if q.Order == repository.OrderAsc && lp.ID <= after {
				continue
			}
			if q.Order == repository.OrderDesc && lp.ID >= after {
				continue
			}
		}
		matches = append(matches, lp)
	}
	sort.Slice(matches, func(i, j int) bool {
		if q.Order == repository.OrderAsc {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].ID > matches[j].ID
	})

	out := repository.CursorPage[model.Lp]{}
	if len(matches) > q.Limit {
		out.Items = matches[:q.Limit]
		out.HasNext = true
	} else {
		out.Items = matches
	}
	if out.HasNext {
		out.NextCursor = repository.Cursor(strconv.FormatInt(out.Items[len(out.Items)-1].ID, 10))
	}
	return out, nil
}

func matchesSearch(lp model.Lp, needle string) bool {
	if strings.Contains(strings.ToLower(lp.Title), needle) {
		return true
	}
	for _, t := range lp.Tags {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			return true
		}
	}
	return false
}

var _ repository.Fetcher[model.Lp] = (*Store)(nil)
var _ repository.Pinger = (*Store)(nil)
