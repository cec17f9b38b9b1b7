package pager

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMore is returned by FetchNext when there is nothing to fetch.
	// It is informational; check State().HasNext to avoid it.
	ErrNoMore = errors.New("no more pages")
	// ErrInFlight is returned while another fetch for the same list is pending.
	// errors.Is(ErrInFlight, ErrNoMore) holds.
	ErrInFlight = fmt.Errorf("%w: fetch already in flight", ErrNoMore)
	// ErrSuperseded is returned to the caller whose fetch completed after the
	// list was reset. The result is dropped and the state is left untouched.
	ErrSuperseded = errors.New("response superseded by reset")
	// ErrNothingToRetry is returned by Retry when the latest fetch succeeded.
	ErrNothingToRetry = errors.New("no failed fetch to retry")
	// ErrClosed is returned once the sequencer has been closed.
	ErrClosed = errors.New("sequencer closed")
)
