package lpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// loggingTransport adapts zerolog to the HTTP client, one event per round trip.
// I keep the query string in the log since it carries cursor and search, which
// is exactly what I need when a page goes missing.
type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func newLoggingTransport(next http.RoundTripper, logger zerolog.Logger) *loggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, logger: logger.With().Str("component", "http").Logger()}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	took := time.Since(start)

	if err != nil {
		t.logger.Warn().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Dur("took", took).Msg("request failed")
		return nil, err
	}

	var event *zerolog.Event
	switch {
	case resp.StatusCode >= 500:
		event = t.logger.Error()
	case resp.StatusCode >= 400:
		event = t.logger.Warn()
	default:
		event = t.logger.Debug()
	}
	event.Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("took", took).
		Msg("request done")
	return resp, nil
}
