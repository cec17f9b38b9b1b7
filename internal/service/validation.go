package service

import (
	"strings"

	"github.com/maxviazov/lp-feed/internal/config"
	"github.com/maxviazov/lp-feed/internal/repository"
)

// maxSearchLen matches the data source limit on the search parameter.
const maxSearchLen = 100

// IsValidOrder accepts asc/desc and the latest/oldest aliases.
func IsValidOrder(order string) bool {
	_, err := repository.ParseOrder(order)
	return err == nil
}

// IsValidPageSize reports whether n fits the data source limit.
func IsValidPageSize(n int) bool {
	return n >= 1 && n <= 100
}

func validateFeedConfig(cfg config.FeedConfig) []FieldError {
	var ferrs []FieldError
	if !IsValidPageSize(cfg.PageSize) {
		ferrs = append(ferrs, FieldError{Field: "page_size", Message: "must be between 1 and 100"})
	}
	if !IsValidOrder(cfg.Order) {
		ferrs = append(ferrs, FieldError{Field: "order", Message: "must be one of asc, desc, latest, oldest"})
	}
	if cfg.DebounceMs < 0 {
		ferrs = append(ferrs, FieldError{Field: "debounce_ms", Message: "must be >= 0"})
	}
	if cfg.ThrottleMs < 0 {
		ferrs = append(ferrs, FieldError{Field: "throttle_ms", Message: "must be >= 0"})
	}
	if cfg.RetentionSec < 0 {
		ferrs = append(ferrs, FieldError{Field: "retention_sec", Message: "must be >= 0"})
	}
	if cfg.StaleAfterSec < 0 {
		ferrs = append(ferrs, FieldError{Field: "stale_after_sec", Message: "must be >= 0"})
	}
	return ferrs
}

func validateSearch(raw string) []FieldError {
	if ln := len([]rune(strings.TrimSpace(raw))); ln > maxSearchLen {
		return []FieldError{{Field: "search", Message: "length must be <= 100"}}
	}
	return nil
}
