package volley

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/volley/internal/report"
	"github.com/jpalmerr/volley/internal/signals"
)

// MetricsCollector receives per-request observations from a [Runner].
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// ObserveOutcome records one processed request. kind is the
	// [Kind.String] form; status is zero for errors.
	ObserveOutcome(kind string, status int, latency time.Duration)

	// SetRequested publishes the total number of requests in the run.
	SetRequested(n int)

	// TaskStarted and TaskFinished bracket one in-flight request.
	TaskStarted()
	TaskFinished()
}

// runConfig holds mutable state during Runner construction.
type runConfig struct {
	jobs             []Job
	poolSize         int
	timeout          time.Duration
	httpClient       *http.Client
	logger           *slog.Logger
	metrics          MetricsCollector
	outcomeCallbacks []func(Outcome)
	debug            bool
	reportErrors     bool
	interimOut       io.Writer
	interimFormat    report.Format
	interimColor     bool
	handleSignals    bool
	signalOpts       []signals.Option
}

// Option is a function that configures a [Runner] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*runConfig) error

// WithJob adds a single [Job]. Can be called multiple times; jobs are
// dispatched in the order they were added.
func WithJob(j Job) Option {
	return func(cfg *runConfig) error {
		cfg.jobs = append(cfg.jobs, j)
		return nil
	}
}

// WithJobs adds multiple jobs. Equivalent to calling [WithJob] for each.
func WithJobs(jobs ...Job) Option {
	return func(cfg *runConfig) error {
		cfg.jobs = append(cfg.jobs, jobs...)
		return nil
	}
}

// WithPoolSize sets the number of workers, i.e. the maximum number of
// requests in flight at once. Defaults to 100.
//
// Values below 1 are treated as 1.
func WithPoolSize(n int) Option {
	return func(cfg *runConfig) error {
		cfg.poolSize = max(n, 1)
		return nil
	}
}

// WithTimeout sets the per-request timeout. Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *runConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHTTPClient replaces the pooled HTTP client used for requests.
// Redirect handling and transport settings are then the caller's.
//
// Returns an error if hc is nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *runConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *runConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithMetrics publishes per-request observations to c.
//
// Returns an error if c is nil.
func WithMetrics(c MetricsCollector) Option {
	return func(cfg *runConfig) error {
		if c == nil {
			return errors.New("metrics collector cannot be nil")
		}
		cfg.metrics = c
		return nil
	}
}

// WithOutcomeCallback registers a function called once per processed
// request, after the outcome has been counted.
//
// Callbacks run on the worker goroutines, so they are called concurrently
// and must be safe for concurrent use. They also hold a worker while they
// run; slow callbacks lower throughput. Panics are recovered and logged.
//
// Multiple callbacks execute in registration order. Nil callbacks are
// silently ignored.
func WithOutcomeCallback(cb func(Outcome)) Option {
	return func(cfg *runConfig) error {
		if cb == nil {
			return nil
		}
		cfg.outcomeCallbacks = append(cfg.outcomeCallbacks, cb)
		return nil
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(enabled bool) Option {
	return func(cfg *runConfig) error {
		cfg.debug = enabled
		return nil
	}
}

// WithErrorReporting logs each failed request at warn level. Without it,
// request errors are only counted and logged at debug level.
func WithErrorReporting(enabled bool) Option {
	return func(cfg *runConfig) error {
		cfg.reportErrors = enabled
		return nil
	}
}

// WithInterimOutput sets where interim reports are written when a status
// signal arrives, and in which format. Without it, interim reports are
// logged at info level.
//
// Returns an error if w is nil or the format is unknown.
func WithInterimOutput(w io.Writer, format string, colored bool) Option {
	return func(cfg *runConfig) error {
		if w == nil {
			return errors.New("interim writer cannot be nil")
		}
		f, err := report.ParseFormat(format)
		if err != nil {
			return fmt.Errorf("interim output: %w", err)
		}
		cfg.interimOut = w
		cfg.interimFormat = f
		cfg.interimColor = colored
		return nil
	}
}

// WithSignalHandling makes [Runner.Run] listen for process signals while it
// runs: SIGINT and SIGTERM kill the run, SIGUSR1 writes an interim report.
// Disabled by default so embedding programs keep control of their signals.
func WithSignalHandling(enabled bool) Option {
	return func(cfg *runConfig) error {
		cfg.handleSignals = enabled
		return nil
	}
}

// withSignalOptions passes options through to the signal monitor.
func withSignalOptions(opts ...signals.Option) Option {
	return func(cfg *runConfig) error {
		cfg.signalOpts = append(cfg.signalOpts, opts...)
		return nil
	}
}
