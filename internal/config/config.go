package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the snapshot fetcher.
type Config struct {
	// Remote quote service
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	UserAgent      string  `mapstructure:"user_agent" validate:"required"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds" validate:"gt=0,lte=120"`
	TableSelector  string  `mapstructure:"table_selector" validate:"required"`

	// Retry policy
	MaxAttempts         int     `mapstructure:"max_attempts" validate:"min=1,max=10"`
	RetryWaitSeconds    float64 `mapstructure:"retry_wait_seconds" validate:"gte=0"`
	RetryMaxWaitSeconds float64 `mapstructure:"retry_max_wait_seconds" validate:"gtefield=RetryWaitSeconds"`
	RequestsPerSecond   float64 `mapstructure:"requests_per_second" validate:"gte=0"`

	// Batch throttling
	ChunkSize                 int     `mapstructure:"chunk_size" validate:"min=10,max=200"`
	RateDelaySeconds          float64 `mapstructure:"rate_delay_seconds" validate:"min=0.5,max=5"`
	PauseBetweenChunksSeconds float64 `mapstructure:"pause_between_chunks_seconds" validate:"min=2,max=30"`

	// Export
	SheetName string `mapstructure:"sheet_name" validate:"required,max=31"`

	// Ambient
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration { return seconds(c.TimeoutSeconds) }

// RetryWait returns the initial backoff between attempts.
func (c *Config) RetryWait() time.Duration { return seconds(c.RetryWaitSeconds) }

// RetryMaxWait returns the backoff cap.
func (c *Config) RetryMaxWait() time.Duration { return seconds(c.RetryMaxWaitSeconds) }

// RateDelay returns the unconditional delay after every fetch.
func (c *Config) RateDelay() time.Duration { return seconds(c.RateDelaySeconds) }

// ChunkPause returns the pause inserted between chunks.
func (c *Config) ChunkPause() time.Duration { return seconds(c.PauseBetweenChunksSeconds) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Every key is bound to SNAPSHOT_<KEY>:
//   - SNAPSHOT_BASE_URL (defaults to https://finviz.com)
//   - SNAPSHOT_USER_AGENT
//   - SNAPSHOT_TIMEOUT_SECONDS
//   - SNAPSHOT_TABLE_SELECTOR
//   - SNAPSHOT_MAX_ATTEMPTS
//   - SNAPSHOT_RETRY_WAIT_SECONDS
//   - SNAPSHOT_RETRY_MAX_WAIT_SECONDS
//   - SNAPSHOT_REQUESTS_PER_SECOND
//   - SNAPSHOT_CHUNK_SIZE
//   - SNAPSHOT_RATE_DELAY_SECONDS
//   - SNAPSHOT_PAUSE_BETWEEN_CHUNKS_SECONDS
//   - SNAPSHOT_SHEET_NAME
//   - SNAPSHOT_LOG_LEVEL
//   - SNAPSHOT_PORT
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.snapshotfetcher")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, key := range keys {
		v.BindEnv(key, "SNAPSHOT_"+strings.ToUpper(key))
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	config := &Config{}
	// Defaults are plain scalars; decoding them cannot fail.
	_ = v.Unmarshal(config)
	return config
}

var keys = []string{
	"base_url",
	"user_agent",
	"timeout_seconds",
	"table_selector",
	"max_attempts",
	"retry_wait_seconds",
	"retry_max_wait_seconds",
	"requests_per_second",
	"chunk_size",
	"rate_delay_seconds",
	"pause_between_chunks_seconds",
	"sheet_name",
	"log_level",
	"port",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://finviz.com")
	v.SetDefault("user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("timeout_seconds", 10)
	v.SetDefault("table_selector", "table.snapshot-table2")
	v.SetDefault("max_attempts", 3)
	v.SetDefault("retry_wait_seconds", 2)
	v.SetDefault("retry_max_wait_seconds", 5)
	v.SetDefault("requests_per_second", 2)
	v.SetDefault("chunk_size", 100)
	v.SetDefault("rate_delay_seconds", 1.0)
	v.SetDefault("pause_between_chunks_seconds", 5)
	v.SetDefault("sheet_name", "Finviz Data")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
}

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		var problems []string
		for _, fe := range fieldErrs {
			problems = append(problems, fmt.Sprintf("%s (%s=%s, got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
