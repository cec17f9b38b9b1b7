package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Load reads the YAML file at path and applies APP_* environment overrides,
// e.g. APP_API_TOKEN or APP_FEED_PAGE_SIZE. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// report every broken section at once
	validate := validator.New()
	err := multierr.Combine(
		sectionError("api", validate.Struct(config.API)),
		sectionError("feed", validate.Struct(config.Feed)),
	)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func sectionError(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s config validation error: %w", section, err)
}

func setDefaults(v *viper.Viper) {
	feed := DefaultFeed()
	v.SetDefault("feed.page_size", feed.PageSize)
	v.SetDefault("feed.order", feed.Order)
	v.SetDefault("feed.debounce_ms", feed.DebounceMs)
	v.SetDefault("feed.throttle_ms", feed.ThrottleMs)
	v.SetDefault("feed.retention_sec", feed.RetentionSec)
	v.SetDefault("feed.stale_after_sec", feed.StaleAfterSec)

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout_ms", 10000)

	// logger keys need defaults so APP_LOGGER_* overrides are picked up
	v.SetDefault("logger.level", "")
	v.SetDefault("logger.env", "")
	v.SetDefault("logger.format", "")
	v.SetDefault("logger.output_target", "")
}
