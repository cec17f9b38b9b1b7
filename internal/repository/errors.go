package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Domain-level errors I prefer to bubble up from data source implementations.
var (
	ErrTransport    = errors.New("transport failure")
	ErrInvalidQuery = errors.New("invalid query")
	ErrDecode       = errors.New("malformed response")
)

// StatusError is returned when the data source answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// IsTransient reports whether retrying the same request may succeed.
// I only treat throttling, server-side failures and network timeouts as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
