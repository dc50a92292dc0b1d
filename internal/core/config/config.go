package config

import (
	"log/slog"
	"time"

	"github.com/vietddude/ddq/internal/infra/rest"
)

// Defaults applied when neither a flag, the environment nor the config file
// provide a value.
const (
	DefaultSite              = "datadoghq.com"
	DefaultRetries      uint = 3
	DefaultBackoffMS         = 250
	DefaultMaxBackoffMS      = 5000
	DefaultTimeoutSecs       = 30
)

// OutputFormat selects how JSON is printed.
type OutputFormat string

const (
	OutputJSON   OutputFormat = "json"
	OutputPretty OutputFormat = "pretty"
)

// FileConfig represents the optional YAML config file.
type FileConfig struct {
	Site           string        `yaml:"site"`
	APIKey         string        `yaml:"api_key"`
	AppKey         string        `yaml:"app_key"`
	TimeoutSeconds *uint64       `yaml:"timeout_seconds"`
	Output         string        `yaml:"output"`
	Retry          RetryConfig   `yaml:"retry"`
	Logging        LoggingConfig `yaml:"logging"`
	MetricsFile    string        `yaml:"metrics_file"`
}

// RetryConfig holds retry settings. Nil fields are unset.
type RetryConfig struct {
	MaxRetries   *uint   `yaml:"max_retries"`
	BackoffMS    *uint64 `yaml:"backoff_ms"`
	MaxBackoffMS *uint64 `yaml:"max_backoff_ms"`
	RateLimit    *bool   `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Overrides carries values given explicitly on the command line.
// Nil means the flag was not set.
type Overrides struct {
	Site   *string
	APIKey *string
	AppKey *string

	Retries           *uint
	RetryBackoffMS    *uint64
	RetryMaxBackoffMS *uint64
	RetryRateLimit    *bool
	TimeoutSeconds    *uint64

	Output      *string
	Compact     bool
	Debug       bool
	LogLevel    *string
	MetricsFile *string
}

// Config is the resolved, validated configuration of one invocation.
type Config struct {
	Credentials rest.Credentials
	BaseURL     string
	Retry       rest.RetryPolicy
	Timeout     time.Duration

	Output  OutputFormat
	Compact bool

	LogLevel    slog.Level
	MetricsFile string
}
