package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/ddq/internal/infra/rest"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Load reads configuration from a YAML file.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.UnmarshalStrict([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Resolve merges flags, environment and file into a validated Config.
// Precedence is flag, then environment, then file, then default.
func Resolve(file *FileConfig, o Overrides, env LookupEnv) (*Config, error) {
	if file == nil {
		file = &FileConfig{}
	}
	if env == nil {
		env = os.LookupEnv
	}

	apiKey := firstNonEmpty(deref(o.APIKey), lookup(env, "DD_API_KEY"), file.APIKey)
	if apiKey == "" {
		return nil, errors.New("Missing Datadog API key. Set --api-key or DD_API_KEY.")
	}

	appKey := firstNonEmpty(deref(o.AppKey), lookup(env, "DD_APP_KEY"), lookup(env, "DD_APPLICATION_KEY"), file.AppKey)
	if appKey == "" {
		return nil, errors.New("Missing Datadog application key. Set --app-key or DD_APP_KEY (or DD_APPLICATION_KEY).")
	}

	site := firstNonEmpty(deref(o.Site), lookup(env, "DD_SITE"), file.Site, DefaultSite)
	baseURL, err := NormalizeBaseURL(site)
	if err != nil {
		return nil, err
	}

	retries := pick(o.Retries, file.Retry.MaxRetries, DefaultRetries)
	backoffMS := pick(o.RetryBackoffMS, file.Retry.BackoffMS, DefaultBackoffMS)
	maxBackoffMS := pick(o.RetryMaxBackoffMS, file.Retry.MaxBackoffMS, DefaultMaxBackoffMS)
	rateLimit := pick(o.RetryRateLimit, file.Retry.RateLimit, true)
	timeoutSecs := pick(o.TimeoutSeconds, file.TimeoutSeconds, DefaultTimeoutSecs)

	if backoffMS == 0 {
		return nil, errors.New("--retry-backoff-ms must be greater than 0.")
	}
	if maxBackoffMS < backoffMS {
		return nil, errors.New("--retry-max-backoff-ms must be greater than or equal to --retry-backoff-ms.")
	}
	if timeoutSecs == 0 {
		return nil, errors.New("--timeout-seconds must be greater than 0.")
	}

	policy := rest.RetryPolicy{
		MaxRetries:       retries,
		BaseBackoff:      time.Duration(backoffMS) * time.Millisecond,
		MaxBackoff:       time.Duration(maxBackoffMS) * time.Millisecond,
		RetryOnRateLimit: rateLimit,
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	output := OutputFormat(strings.ToLower(firstNonEmpty(deref(o.Output), file.Output, string(OutputJSON))))
	if output != OutputJSON && output != OutputPretty {
		return nil, fmt.Errorf("invalid output format %q, use json or pretty", output)
	}

	level := slog.LevelError
	if name := firstNonEmpty(deref(o.LogLevel), file.Logging.Level); name != "" {
		if err := level.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", name)
		}
	}
	if o.Debug {
		level = slog.LevelDebug
	}

	return &Config{
		Credentials: rest.Credentials{APIKey: apiKey, AppKey: appKey},
		BaseURL:     baseURL,
		Retry:       policy,
		Timeout:     time.Duration(timeoutSecs) * time.Second,
		Output:      output,
		Compact:     o.Compact || output == OutputJSON,
		LogLevel:    level,
		MetricsFile: firstNonEmpty(deref(o.MetricsFile), file.MetricsFile),
	}, nil
}

// NormalizeBaseURL turns a site ("datadoghq.eu", "api.us3.datadoghq.com")
// or a full URL into an API base URL without a trailing slash.
func NormalizeBaseURL(site string) (string, error) {
	cleaned := strings.TrimRight(strings.TrimSpace(site), "/")
	if cleaned == "" {
		return "", errors.New("Datadog site value is empty.")
	}

	if strings.HasPrefix(cleaned, "http://") || strings.HasPrefix(cleaned, "https://") {
		return cleaned, nil
	}
	if strings.HasPrefix(cleaned, "api.") {
		return "https://" + cleaned, nil
	}
	return "https://api." + cleaned, nil
}

func lookup(env LookupEnv, key string) string {
	v, _ := env(key)
	return v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func pick[T any](flag, file *T, def T) T {
	if flag != nil {
		return *flag
	}
	if file != nil {
		return *file
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
