// Package lpapi fetches LP pages from the gallery REST API.
package lpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/maxviazov/lp-feed/internal/config"
	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/repository"
)

const listPath = "/v1/lps"

// maxErrorBody caps how much of a failed response is kept for the error message.
const maxErrorBody = 4 << 10

// Client talks to the LP API. It performs exactly one HTTP request per
// FetchPage call; retries are up to the caller.
type Client struct {
	base     *url.URL
	token    string
	http     *http.Client
	validate *validator.Validate
	log      zerolog.Logger
}

// New builds a client from the api config section.
func New(cfg config.APIConfig, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported api scheme %q", base.Scheme)
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	l := logger.With().Str("module", "repository").Str("component", "lpapi").Logger()
	return &Client{
		base:  base,
		token: cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: newLoggingTransport(http.DefaultTransport, l),
		},
		validate: validator.New(),
		log:      l,
	}, nil
}

type envelope[T any] struct {
	Status     bool        `json:"status"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       pageBody[T] `json:"data"`
}

type pageBody[T any] struct {
	Data       []T        `json:"data"`
	NextCursor wireCursor `json:"nextCursor"`
	HasNext    bool       `json:"hasNext"`
}

// wireCursor accepts a cursor encoded as a JSON number, string or null.
type wireCursor string

func (c *wireCursor) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*c = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*c = wireCursor(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*c = wireCursor(n.String())
	}
	return nil
}

// FetchPage implements repository.Fetcher.
func (c *Client) FetchPage(ctx context.Context, q repository.Query) (repository.CursorPage[model.Lp], error) {
	if err := c.validate.Struct(q); err != nil {
		return repository.CursorPage[model.Lp]{}, fmt.Errorf("%w: %v", repository.ErrInvalidQuery, err)
	}
	params := pageParams(q)
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	return getPage[model.Lp](ctx, c, listPath, params, nil)
}

// FetchComments implements repository.CommentFetcher. The comments endpoint
// pages by offset; when it reports more items without a cursor, the next
// offset is derived from the current one.
func (c *Client) FetchComments(ctx context.Context, lpID int64, q repository.Query) (repository.CursorPage[model.Comment], error) {
	if lpID <= 0 {
		return repository.CursorPage[model.Comment]{}, fmt.Errorf("%w: lp id must be > 0", repository.ErrInvalidQuery)
	}
	q.Search = ""
	if err := c.validate.Struct(q); err != nil {
		return repository.CursorPage[model.Comment]{}, fmt.Errorf("%w: %v", repository.ErrInvalidQuery, err)
	}
	params := pageParams(q)
	next := func() (repository.Cursor, error) {
		offset, err := strconv.Atoi(params.Get("cursor"))
		if err != nil {
			return "", fmt.Errorf("%w: hasNext without nextCursor after cursor %q", repository.ErrDecode, q.Cursor)
		}
		return repository.Cursor(strconv.Itoa(offset + q.Limit)), nil
	}
	return getPage[model.Comment](ctx, c, listPath+"/"+strconv.FormatInt(lpID, 10)+"/comments", params, next)
}

func pageParams(q repository.Query) url.Values {
	params := url.Values{}
	cursor := string(q.Cursor)
	if q.Cursor == repository.InitialCursor {
		cursor = "0"
	}
	params.Set("cursor", cursor)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("order", string(q.Order))
	return params
}

// getPage performs one GET against path and decodes the page envelope.
// missingCursor supplies the next cursor when the body has hasNext set but
// no nextCursor; a nil missingCursor makes that a decode error.
func getPage[T any](ctx context.Context, c *Client, path string, params url.Values, missingCursor func() (repository.Cursor, error)) (repository.CursorPage[T], error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return repository.CursorPage[T]{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return repository.CursorPage[T]{}, fmt.Errorf("%w: %w", repository.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return repository.CursorPage[T]{}, statusError(resp)
	}

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return repository.CursorPage[T]{}, fmt.Errorf("%w: %w", repository.ErrDecode, err)
	}
	out := repository.CursorPage[T]{
		Items:      env.Data.Data,
		HasNext:    env.Data.HasNext,
		NextCursor: repository.Cursor(env.Data.NextCursor),
	}
	if !out.HasNext {
		out.NextCursor = ""
	} else if out.NextCursor == "" {
		if missingCursor == nil {
			return repository.CursorPage[T]{}, fmt.Errorf("%w: hasNext without nextCursor", repository.ErrDecode)
		}
		if out.NextCursor, err = missingCursor(); err != nil {
			return repository.CursorPage[T]{}, err
		}
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	return out, nil
}

// Ping treats any answer below 500 from the base URL as alive.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", repository.ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode >= 500 {
		return &repository.StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &repository.StatusError{StatusCode: resp.StatusCode}
	var env envelope[json.RawMessage]
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		se.Message = env.Message
	} else {
		se.Message = strings.TrimSpace(string(body))
	}
	return se
}

var _ repository.Fetcher[model.Lp] = (*Client)(nil)
var _ repository.CommentFetcher = (*Client)(nil)
var _ repository.Pinger = (*Client)(nil)
