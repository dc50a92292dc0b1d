package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func ptr[T any](v T) *T { return &v }

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	t.Setenv("TEST_DD_API_KEY", "key-from-env")

	// Create temp config file
	configContent := `
site: datadoghq.eu
api_key: ${TEST_DD_API_KEY}
timeout_seconds: 10
retry:
  max_retries: 5
  backoff_ms: 100
  rate_limit: false
logging:
  level: info
`
	tmpFile, err := os.CreateTemp("", "ddq_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "datadoghq.eu", cfg.Site)
	assert.Equal(t, "key-from-env", cfg.APIKey)
	require.NotNil(t, cfg.TimeoutSeconds)
	assert.Equal(t, uint64(10), *cfg.TimeoutSeconds)
	require.NotNil(t, cfg.Retry.MaxRetries)
	assert.Equal(t, uint(5), *cfg.Retry.MaxRetries)
	require.NotNil(t, cfg.Retry.RateLimit)
	assert.False(t, *cfg.Retry.RateLimit)
	assert.Nil(t, cfg.Retry.MaxBackoffMS)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("/nonexistent/ddq.yaml")
	assert.ErrorContains(t, err, "failed to read config file")

	path := t.TempDir() + "/bad.yaml"
	require.NoError(t, os.WriteFile(path, []byte("sitee: typo\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(nil, Overrides{}, envMap(map[string]string{
		"DD_API_KEY": "api",
		"DD_APP_KEY": "app",
	}))
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Credentials.APIKey)
	assert.Equal(t, "app", cfg.Credentials.AppKey)
	assert.Equal(t, "https://api.datadoghq.com", cfg.BaseURL)
	assert.Equal(t, uint(3), cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseBackoff)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxBackoff)
	assert.True(t, cfg.Retry.RetryOnRateLimit)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.True(t, cfg.Compact)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
}

func TestResolve_Precedence(t *testing.T) {
	file := &FileConfig{
		Site:   "datadoghq.eu",
		APIKey: "file-api",
		AppKey: "file-app",
		Output: "pretty",
		Retry:  RetryConfig{MaxRetries: ptr(uint(7)), BackoffMS: ptr(uint64(100))},
	}

	// File only.
	cfg, err := Resolve(file, Overrides{}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "file-api", cfg.Credentials.APIKey)
	assert.Equal(t, "https://api.datadoghq.eu", cfg.BaseURL)
	assert.Equal(t, uint(7), cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseBackoff)
	assert.Equal(t, OutputPretty, cfg.Output)
	assert.False(t, cfg.Compact)

	// Environment beats file.
	env := envMap(map[string]string{"DD_API_KEY": "env-api", "DD_APPLICATION_KEY": "env-app", "DD_SITE": "us3.datadoghq.com"})
	cfg, err = Resolve(file, Overrides{}, env)
	require.NoError(t, err)
	assert.Equal(t, "env-api", cfg.Credentials.APIKey)
	assert.Equal(t, "env-app", cfg.Credentials.AppKey)
	assert.Equal(t, "https://api.us3.datadoghq.com", cfg.BaseURL)

	// Flags beat everything.
	cfg, err = Resolve(file, Overrides{
		APIKey:  ptr("flag-api"),
		Site:    ptr("https://localhost:8080/"),
		Retries: ptr(uint(0)),
		Compact: true,
		Debug:   true,
	}, env)
	require.NoError(t, err)
	assert.Equal(t, "flag-api", cfg.Credentials.APIKey)
	assert.Equal(t, "https://localhost:8080", cfg.BaseURL)
	assert.Equal(t, uint(0), cfg.Retry.MaxRetries)
	assert.True(t, cfg.Compact)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestResolve_AppKeyFallback(t *testing.T) {
	cfg, err := Resolve(nil, Overrides{}, envMap(map[string]string{
		"DD_API_KEY":         "api",
		"DD_APP_KEY":         "primary",
		"DD_APPLICATION_KEY": "secondary",
	}))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Credentials.AppKey)
}

func TestResolve_Errors(t *testing.T) {
	keys := map[string]string{"DD_API_KEY": "api", "DD_APP_KEY": "app"}

	tests := []struct {
		name    string
		o       Overrides
		env     map[string]string
		message string
	}{
		{"missing api key", Overrides{}, map[string]string{"DD_APP_KEY": "app"}, "API key"},
		{"missing app key", Overrides{}, map[string]string{"DD_API_KEY": "api"}, "application key"},
		{"empty site", Overrides{Site: ptr("  / ")}, keys, "site value is empty"},
		{"zero backoff", Overrides{RetryBackoffMS: ptr(uint64(0))}, keys, "--retry-backoff-ms"},
		{"max below base", Overrides{RetryBackoffMS: ptr(uint64(500)), RetryMaxBackoffMS: ptr(uint64(100))}, keys, "--retry-max-backoff-ms"},
		{"zero timeout", Overrides{TimeoutSeconds: ptr(uint64(0))}, keys, "--timeout-seconds"},
		{"bad output", Overrides{Output: ptr("yaml")}, keys, "output format"},
		{"bad log level", Overrides{LogLevel: ptr("loud")}, keys, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(nil, tt.o, envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"datadoghq.com":             "https://api.datadoghq.com",
		"us5.datadoghq.com/":        "https://api.us5.datadoghq.com",
		"api.datadoghq.eu":          "https://api.datadoghq.eu",
		"https://api.ddog-gov.com/": "https://api.ddog-gov.com",
		"http://localhost:9000":     "http://localhost:9000",
		"  ap1.datadoghq.com  ":     "https://api.ap1.datadoghq.com",
	}

	for in, want := range tests {
		got, err := NormalizeBaseURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
