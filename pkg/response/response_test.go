package response_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/maxviazov/lp-feed/internal/pager"
	"github.com/maxviazov/lp-feed/internal/repository"
	"github.com/maxviazov/lp-feed/internal/service"
	"github.com/maxviazov/lp-feed/pkg/response"
)

// fakeInvalid mimics service aggregated validation error to test mapping without reaching into internals.
type fakeInvalid struct{ fe []service.FieldError }

func (f *fakeInvalid) Error() string                { return service.ErrInvalidInput.Error() }
func (f *fakeInvalid) Unwrap() error                { return service.ErrInvalidInput }
func (f *fakeInvalid) Fields() []service.FieldError { return f.fe }

func TestMapError(t *testing.T) {
	cases := []struct {
		name      string
		in        error
		wantCode  int
		wantErr   string
		retryable bool
	}{
		{"nil", nil, response.ExitOK, "ok", false},
		{"invalid_input", &fakeInvalid{fe: []service.FieldError{{Field: "order", Message: "bad"}}}, response.ExitInvalid, "invalid_input", false},
		{"upstream_5xx", fmt.Errorf("fetch page 0: %w", &repository.StatusError{StatusCode: 503}), response.ExitUnavailable, "upstream_status", true},
		{"upstream_4xx", &repository.StatusError{StatusCode: 404}, response.ExitUnavailable, "upstream_status", false},
		{"invalid_query", fmt.Errorf("%w: limit", repository.ErrInvalidQuery), response.ExitInvalid, "invalid_query", false},
		{"transport", fmt.Errorf("%w: dial tcp", repository.ErrTransport), response.ExitUnavailable, "unavailable", true},
		{"decode", repository.ErrDecode, response.ExitUnavailable, "bad_response", false},
		{"no_more", pager.ErrInFlight, response.ExitOK, "no_more", false},
		{"internal", errors.New("boom"), response.ExitInternal, "internal_error", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, payload := response.MapError(tc.in)
			if code != tc.wantCode || payload.Error != tc.wantErr {
				t.Fatalf("unexpected mapping: got (%d,%s) want (%d,%s)", code, payload.Error, tc.wantCode, tc.wantErr)
			}
			if payload.Retryable != tc.retryable {
				t.Fatalf("retryable = %t, want %t", payload.Retryable, tc.retryable)
			}
			if tc.wantErr == "invalid_input" && len(payload.FieldErrors) == 0 {
				t.Fatalf("expected field errors in payload")
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	code := response.WriteError(&buf, service.InvalidField("search", "length must be <= 100"))
	if code != response.ExitInvalid {
		t.Fatalf("unexpected exit code %d", code)
	}
	var payload response.ErrorPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if payload.Error != "invalid_input" || len(payload.FieldErrors) != 1 || payload.FieldErrors[0].Field != "search" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
