// Package response centralizes how the CLI reports failures.
// Commands rely on it to keep exit codes and error output uniform.
package response

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/maxviazov/lp-feed/internal/pager"
	"github.com/maxviazov/lp-feed/internal/repository"
	"github.com/maxviazov/lp-feed/internal/service"
)

// Exit codes returned by the lpfeed binary.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitInvalid     = 2
	ExitUnavailable = 3
)

// ErrorPayload is the canonical error envelope printed on failure.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Message     string               `json:"message,omitempty"`
	Retryable   bool                 `json:"retryable,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// MapError converts a domain / infrastructure error into an exit code and payload.
// Extend here as new domain error categories emerge.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return ExitOK, ErrorPayload{Error: "ok"}
	}

	if errors.Is(err, service.ErrInvalidInput) {
		return ExitInvalid, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}

	var se *repository.StatusError
	switch {
	case errors.As(err, &se):
		return ExitUnavailable, ErrorPayload{Error: "upstream_status", Message: se.Error(), Retryable: repository.IsTransient(err)}
	case errors.Is(err, repository.ErrInvalidQuery):
		return ExitInvalid, ErrorPayload{Error: "invalid_query", Message: err.Error()}
	case errors.Is(err, repository.ErrTransport):
		return ExitUnavailable, ErrorPayload{Error: "unavailable", Message: err.Error(), Retryable: true}
	case errors.Is(err, repository.ErrDecode):
		return ExitUnavailable, ErrorPayload{Error: "bad_response", Message: err.Error()}
	case errors.Is(err, pager.ErrNoMore):
		return ExitOK, ErrorPayload{Error: "no_more", Message: err.Error()}
	default:
		return ExitInternal, ErrorPayload{Error: "internal_error", Message: err.Error()}
	}
}

// WriteError writes the payload for err as one JSON line and returns the exit code.
func WriteError(w io.Writer, err error) int {
	code, payload := MapError(err)
	_ = json.NewEncoder(w).Encode(payload)
	return code
}
