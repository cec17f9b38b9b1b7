package repository

import (
	"fmt"
	"strings"
)

// Order is the sort direction of a listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Valid reports whether o is one of the known directions.
func (o Order) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// ParseOrder accepts asc/desc as well as the latest/oldest aliases used by
// the LP API, case-insensitively.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "oldest":
		return OrderAsc, nil
	case "desc", "latest":
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("%w: unknown order %q", ErrInvalidQuery, s)
	}
}

// Cursor is an opaque position issued by the data source. Clients never
// compute cursors; they only echo back what the previous page returned.
type Cursor string

// InitialCursor asks the data source for the first page.
const InitialCursor Cursor = ""

// Query describes one page request.
type Query struct {
	Cursor Cursor
	Limit  int    `validate:"min=1,max=100"`
	Search string `validate:"max=100"`
	Order  Order  `validate:"oneof=asc desc"`
}

// CursorPage is one page of results plus the cursor to resume from.
// NextCursor is meaningful only while HasNext is true.
type CursorPage[T any] struct {
	Items      []T
	NextCursor Cursor
	HasNext    bool
}
