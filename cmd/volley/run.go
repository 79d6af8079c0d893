package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/volley"
	"github.com/jpalmerr/volley/config"
	"github.com/jpalmerr/volley/internal/client"
	"github.com/jpalmerr/volley/internal/metrics"
)

const envPrefix = "VOLLEY"

// Flag names. Viper keys are the same names; VOLLEY_ env variables use
// upper case with '-' replaced by '_'.
const (
	flagIterations  = "iterations"
	flagEndpoint    = "endpoint"
	flagMethod      = "method"
	flagHeader      = "header"
	flagSleep       = "sleep"
	flagScript      = "script"
	flagPoolSize    = "pool-size"
	flagOutput      = "output"
	flagRandom      = "random"
	flagVerbose     = "verbose"
	flagDebug       = "debug"
	flagErrors      = "errors"
	flagTimeout     = "timeout"
	flagMetricsAddr = "metrics-addr"
	flagLogFormat   = "log-format"
	flagNoColor     = "no-color"
)

// runSettings is the resolved command-line configuration of one run.
type runSettings struct {
	defaults     config.Defaults
	script       string
	poolSize     int
	output       string
	verbose      bool
	debug        bool
	reportErrors bool
	timeout      time.Duration
	metricsAddr  string
	logFormat    string
	noColor      bool
}

// bindRunFlags registers the load test flags on cmd and sets its RunE.
func bindRunFlags(cmd *cobra.Command) {
	v := viper.New()

	f := cmd.Flags()
	f.IntP(flagIterations, "n", 1, "number of times to send each request")
	f.StringP(flagEndpoint, "e", "", "endpoint to call, or the default for script entries")
	f.StringP(flagMethod, "m", "GET", "HTTP method")
	f.StringArrayP(flagHeader, "x", nil, `header as "Name: Value" or "Name=Value" (repeatable)`)
	f.IntP(flagSleep, "s", 0, "milliseconds to wait before each request")
	f.StringP(flagScript, "f", "", "script file of requests (.txt, .csv, .json, .yaml)")
	f.IntP(flagPoolSize, "p", 100, "number of concurrent workers")
	f.StringP(flagOutput, "o", "text", "report format: text, summary, json, csv, yaml")
	f.BoolP(flagRandom, "r", false, "replace RANDOM and TIMESTAMP in endpoints and headers")
	f.BoolP(flagVerbose, "v", false, "log at debug level")
	f.BoolP(flagDebug, "D", false, "log request and response details")
	f.BoolP(flagErrors, "E", false, "log every request error")
	f.Duration(flagTimeout, client.DefaultTimeout, "per-request timeout")
	f.String(flagMetricsAddr, "", "serve Prometheus metrics on this address during the run (e.g. :9090)")
	f.String(flagLogFormat, "text", "log format on stderr: text or json")
	f.Bool(flagNoColor, false, "disable colored output")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return bindEnv(v, cmd.Flags())
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings(v, cmd.Flags())
		if err != nil {
			return err
		}
		return runLoad(cmd.Context(), s, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
}

// bindEnv lets VOLLEY_ environment variables override flag defaults.
// Flags set on the command line still win.
func bindEnv(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

func loadSettings(v *viper.Viper, flags *pflag.FlagSet) (runSettings, error) {
	headers, err := flags.GetStringArray(flagHeader)
	if err != nil {
		return runSettings{}, err
	}
	// A VOLLEY_HEADER variable holds one header list, split by ParseHeaders.
	if !flags.Changed(flagHeader) && v.IsSet(flagHeader) {
		if raw := v.GetString(flagHeader); raw != "" {
			headers = []string{raw}
		}
	}

	sleepMs := v.GetInt(flagSleep)
	if sleepMs < 0 {
		return runSettings{}, fmt.Errorf("--%s cannot be negative, got %d", flagSleep, sleepMs)
	}
	iterations := v.GetInt(flagIterations)
	if iterations < 1 {
		return runSettings{}, fmt.Errorf("--%s must be at least 1, got %d", flagIterations, iterations)
	}

	return runSettings{
		defaults: config.Defaults{
			Iterations: iterations,
			Method:     v.GetString(flagMethod),
			Endpoint:   v.GetString(flagEndpoint),
			Headers:    headers,
			Sleep:      time.Duration(sleepMs) * time.Millisecond,
			Randomize:  v.GetBool(flagRandom),
		},
		script:       v.GetString(flagScript),
		poolSize:     v.GetInt(flagPoolSize),
		output:       v.GetString(flagOutput),
		verbose:      v.GetBool(flagVerbose),
		debug:        v.GetBool(flagDebug),
		reportErrors: v.GetBool(flagErrors),
		timeout:      v.GetDuration(flagTimeout),
		metricsAddr:  v.GetString(flagMetricsAddr),
		logFormat:    v.GetString(flagLogFormat),
		noColor:      v.GetBool(flagNoColor),
	}, nil
}

// newLogger creates the stderr logger for CLI use. Only warnings and errors
// are shown unless verbose is set, so the report stays the main output.
func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("--%s must be text or json, got %q", flagLogFormat, format)
	}
}

// useColor reports whether w is a terminal that should get colored output.
func useColor(w io.Writer, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// runLoad resolves the requests, runs them and renders the final report.
func runLoad(ctx context.Context, s runSettings, stdout, stderr io.Writer) error {
	logger, err := newLogger(stderr, s.logFormat, s.verbose)
	if err != nil {
		return err
	}

	colored := useColor(stdout, s.noColor)

	descs, err := config.Resolve(s.defaults, s.script)
	if err != nil {
		return fmt.Errorf("failed to load requests: %w", err)
	}
	jobs, err := config.BuildJobs(descs)
	if err != nil {
		return fmt.Errorf("failed to build requests: %w", err)
	}
	logger.Debug("requests loaded",
		"entries", len(descs),
		"requests", config.Requests(descs),
		"script", s.script,
	)

	opts := []volley.Option{
		volley.WithJobs(jobs...),
		volley.WithPoolSize(s.poolSize),
		volley.WithTimeout(s.timeout),
		volley.WithLogger(logger),
		volley.WithDebug(s.debug),
		volley.WithErrorReporting(s.reportErrors),
		volley.WithInterimOutput(stdout, s.output, colored),
		volley.WithSignalHandling(true),
	}

	var srv *metrics.Server
	if s.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, volley.WithMetrics(metrics.NewPrometheusCollector(reg)))
		srv = metrics.NewServer(s.metricsAddr, reg, logger)
	}

	runner, err := volley.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	rep, err := execute(ctx, runner, srv)
	if err != nil {
		return err
	}

	if err := rep.Render(stdout, s.output, colored); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// execute runs the load test and, if srv is set, serves metrics until the
// run has finished.
func execute(ctx context.Context, runner *volley.Runner, srv *metrics.Server) (volley.Report, error) {
	g, gctx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	if srv != nil {
		if err := srv.Start(metricsCtx); err != nil {
			return volley.Report{}, err
		}
		g.Go(func() error {
			<-srv.Done()
			return nil
		})
	}

	var rep volley.Report
	g.Go(func() error {
		defer stopMetrics()
		var err error
		rep, err = runner.Run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return volley.Report{}, fmt.Errorf("run cancelled before it started: %w", err)
		}
		return volley.Report{}, err
	}
	return rep, nil
}
