package pager

import (
	"strings"

	"github.com/maxviazov/lp-feed/internal/repository"
)

// DefaultPageSize is used when an identity carries no page size.
const DefaultPageSize = 10

// Identity selects one paginated list: the search term, the sort order and
// the number of items per page.
type Identity struct {
	Search   string
	Order    repository.Order
	PageSize int
}

// Key is the part of an Identity that owns a page list. Changing the key
// restarts pagination; changing only the page size does not.
type Key struct {
	Search string
	Order  repository.Order
}

func (k Key) String() string { return string(k.Order) + "|" + k.Search }

// Normalize trims the search term and fills in defaults, so whitespace-only
// input behaves like an empty search.
func (id Identity) Normalize() Identity {
	id.Search = strings.TrimSpace(id.Search)
	if id.Order == "" {
		id.Order = repository.OrderDesc
	}
	if id.PageSize <= 0 {
		id.PageSize = DefaultPageSize
	}
	return id
}

// Key returns the normalized page-list key.
func (id Identity) Key() Key {
	n := id.Normalize()
	return Key{Search: n.Search, Order: n.Order}
}

// Equal compares all three fields after normalization.
func (id Identity) Equal(other Identity) bool {
	return id.Normalize() == other.Normalize()
}

// query builds the page request for cursor c.
func (id Identity) query(c repository.Cursor) repository.Query {
	n := id.Normalize()
	return repository.Query{Cursor: c, Limit: n.PageSize, Search: n.Search, Order: n.Order}
}
