package config

import (
	"time"

	"github.com/maxviazov/lp-feed/internal/logger"
)

type Config struct {
	Logger logger.LoggerConfig `mapstructure:"logger"`
	API    APIConfig           `mapstructure:"api"`
	Feed   FeedConfig          `mapstructure:"feed"`
}

// APIConfig points the client at the LP REST API.
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
	Token     string `mapstructure:"token"`
	TimeoutMs int    `mapstructure:"timeout_ms" validate:"gte=0"`
}

// FeedConfig holds the timing and paging knobs of the browsing feed.
type FeedConfig struct {
	PageSize      int    `mapstructure:"page_size" validate:"min=1,max=100"`
	Order         string `mapstructure:"order" validate:"oneof=asc desc latest oldest"`
	DebounceMs    int    `mapstructure:"debounce_ms" validate:"gte=0"`
	ThrottleMs    int    `mapstructure:"throttle_ms" validate:"gte=0"`
	RetentionSec  int    `mapstructure:"retention_sec" validate:"gte=0"`
	StaleAfterSec int    `mapstructure:"stale_after_sec" validate:"gte=0"`
}

func (f FeedConfig) Debounce() time.Duration   { return time.Duration(f.DebounceMs) * time.Millisecond }
func (f FeedConfig) Throttle() time.Duration   { return time.Duration(f.ThrottleMs) * time.Millisecond }
func (f FeedConfig) Retention() time.Duration  { return time.Duration(f.RetentionSec) * time.Second }
func (f FeedConfig) StaleAfter() time.Duration { return time.Duration(f.StaleAfterSec) * time.Second }

// DefaultFeed mirrors the gallery home page: ten cards per page, newest first,
// 300ms search debounce, one page load per second, data fresh for five
// minutes and kept for ten.
func DefaultFeed() FeedConfig {
	return FeedConfig{
		PageSize:      10,
		Order:         "desc",
		DebounceMs:    300,
		ThrottleMs:    1000,
		RetentionSec:  600,
		StaleAfterSec: 300,
	}
}
