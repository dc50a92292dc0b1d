package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vietddude/ddq/internal/core/apperror"
	"github.com/vietddude/ddq/internal/core/config"
	"github.com/vietddude/ddq/internal/infra/datadog"
	"github.com/vietddude/ddq/internal/infra/metrics"
	"github.com/vietddude/ddq/internal/infra/rest"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	site              string
	apiKey            string
	appKey            string
	configPath        string
	envFile           string
	output            string
	compact           bool
	retries           uint
	retryBackoffMS    uint64
	retryMaxBackoffMS uint64
	retryRateLimit    bool
	timeoutSeconds    uint64
	debug             bool
	logLevel          string
	metricsFile       string
}

// app is the state of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	env    config.LookupEnv
	now    func() time.Time

	// doer overrides the HTTP client; nil uses the default transport.
	doer rest.Doer
	// sleeper overrides the backoff sleep; nil sleeps for real.
	sleeper rest.Sleeper

	flags globalFlags
	cfg   *config.Config
}

// Execute runs ddq with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		env:    os.LookupEnv,
		now:    time.Now,
	}
	return a.run(ctx, os.Args[1:])
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if flushErr := a.flushMetrics(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err == nil {
		return 0
	}

	appErr := classify(err)
	a.writeError(appErr)
	return appErr.ExitCode()
}

// classify maps a command error to an AppError. Errors that are neither
// ours nor the executor's come from cobra's argument handling.
func classify(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var restErr *rest.Error
	if errors.As(err, &restErr) {
		return apperror.From(restErr)
	}
	return apperror.Usage("%s", err.Error())
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ddq",
		Short:         "Query Datadog logs, metrics and events from the command line",
		Long:          `ddq queries the Datadog API and prints the JSON response on stdout. Failures are printed as a JSON envelope on stderr.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(a.stderr)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperror.Usage("%s", err.Error())
	})

	f := &a.flags
	pf := root.PersistentFlags()
	pf.StringVar(&f.site, "site", "", "Datadog site or base URL (env DD_SITE, default datadoghq.com)")
	pf.StringVar(&f.apiKey, "api-key", "", "Datadog API key (env DD_API_KEY)")
	pf.StringVar(&f.appKey, "app-key", "", "Datadog application key (env DD_APP_KEY or DD_APPLICATION_KEY)")
	pf.StringVar(&f.configPath, "config", "", "YAML config file (env DDQ_CONFIG)")
	pf.StringVar(&f.envFile, "env-file", "", "load environment variables from this file")
	pf.StringVar(&f.output, "output", string(config.OutputJSON), "output format: json or pretty")
	pf.BoolVar(&f.compact, "compact", false, "print compact JSON (deprecated, json output is compact)")
	pf.UintVar(&f.retries, "retries", config.DefaultRetries, "retries after the first attempt")
	pf.Uint64Var(&f.retryBackoffMS, "retry-backoff-ms", config.DefaultBackoffMS, "base backoff in milliseconds")
	pf.Uint64Var(&f.retryMaxBackoffMS, "retry-max-backoff-ms", config.DefaultMaxBackoffMS, "maximum backoff in milliseconds")
	pf.BoolVar(&f.retryRateLimit, "retry-rate-limit", true, "retry HTTP 429 responses")
	pf.Uint64Var(&f.timeoutSeconds, "timeout-seconds", config.DefaultTimeoutSecs, "per-attempt timeout in seconds")
	pf.BoolVar(&f.debug, "debug", false, "enable debug logging")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		a.newLogsCmd(),
		a.newMetricsCmd(),
		a.newEventsCmd(),
		a.newRawCmd(),
		a.newVersionCmd(),
	)
	return root
}

// client resolves configuration, installs the logger and builds the
// Datadog client for commands that talk to the API.
func (a *app) client(cmd *cobra.Command) (*datadog.Client, error) {
	if err := a.loadEnvFiles(); err != nil {
		return nil, err
	}

	var file *config.FileConfig
	path := a.flags.configPath
	if !cmd.Flags().Changed("config") {
		path, _ = a.env("DDQ_CONFIG")
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, apperror.Usage("%s", err.Error())
		}
		file = loaded
	}

	cfg, err := config.Resolve(file, a.overrides(cmd), a.env)
	if err != nil {
		return nil, apperror.Usage("%s", err.Error())
	}
	a.cfg = cfg

	logger := a.newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Debug("Configuration resolved",
		"base_url", cfg.BaseURL,
		"credentials", cfg.Credentials,
		"max_retries", cfg.Retry.MaxRetries,
		"timeout", cfg.Timeout,
	)

	opts := []rest.Option{
		rest.WithTimeout(cfg.Timeout),
		rest.WithLogger(logger),
	}
	if a.doer != nil {
		opts = append(opts, rest.WithHTTPClient(a.doer))
	}
	if a.sleeper != nil {
		opts = append(opts, rest.WithSleeper(a.sleeper))
	}

	exec := rest.NewExecutor(cfg.BaseURL, cfg.Credentials, cfg.Retry, opts...)
	return datadog.NewClient(exec), nil
}

// loadEnvFiles loads .env from the working directory when present, then
// the file named by --env-file. Variables already set are never replaced.
func (a *app) loadEnvFiles() error {
	_ = godotenv.Load()

	if a.flags.envFile == "" {
		return nil
	}
	if err := godotenv.Load(a.flags.envFile); err != nil {
		return apperror.Usage("Failed to load env file %s: %s", a.flags.envFile, err)
	}
	return nil
}

// overrides collects the flags set explicitly on the command line.
func (a *app) overrides(cmd *cobra.Command) config.Overrides {
	f := &a.flags
	flags := cmd.Flags()
	o := config.Overrides{
		Compact: f.compact,
		Debug:   f.debug,
	}
	if flags.Changed("site") {
		o.Site = &f.site
	}
	if flags.Changed("api-key") {
		o.APIKey = &f.apiKey
	}
	if flags.Changed("app-key") {
		o.AppKey = &f.appKey
	}
	if flags.Changed("retries") {
		o.Retries = &f.retries
	}
	if flags.Changed("retry-backoff-ms") {
		o.RetryBackoffMS = &f.retryBackoffMS
	}
	if flags.Changed("retry-max-backoff-ms") {
		o.RetryMaxBackoffMS = &f.retryMaxBackoffMS
	}
	if flags.Changed("retry-rate-limit") {
		o.RetryRateLimit = &f.retryRateLimit
	}
	if flags.Changed("timeout-seconds") {
		o.TimeoutSeconds = &f.timeoutSeconds
	}
	if flags.Changed("output") {
		o.Output = &f.output
	}
	if flags.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if flags.Changed("metrics-file") {
		o.MetricsFile = &f.metricsFile
	}
	return o
}

func (a *app) newLogger(level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := a.stderr.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}

	handler := tint.NewHandler(a.stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	})
	return slog.New(handler).With("invocation", uuid.NewString())
}

func (a *app) flushMetrics() error {
	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		return apperror.Internal(err)
	}
	return nil
}
