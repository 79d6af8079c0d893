package volley

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/volley/internal/client"
	"github.com/jpalmerr/volley/internal/metrics"
	"github.com/jpalmerr/volley/internal/pool"
	"github.com/jpalmerr/volley/internal/report"
	"github.com/jpalmerr/volley/internal/signals"
	"github.com/jpalmerr/volley/internal/state"
)

const (
	defaultPoolSize = 100
	defaultTimeout  = client.DefaultTimeout
)

// Runner executes a fixed list of jobs through a bounded worker pool and
// tallies their outcomes.
//
// Runner is created using [New] with functional options and executed with
// [Runner.Run]. The typical lifecycle is:
//
//	job, _ := volley.NewJob("https://api.example.com/health", volley.WithIterations(1000))
//	r, err := volley.New(volley.WithJob(job), volley.WithPoolSize(50))
//	if err != nil {
//	    slog.Error("failed to create runner", "error", err)
//	    os.Exit(1)
//	}
//
//	rep, err := r.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	rep.Render(os.Stdout, "json", false)
//
// A Runner may be run more than once; each run starts from zero counters.
// Concurrent runs on the same Runner are not supported.
type Runner struct {
	jobs             []Job
	poolSize         int
	timeout          time.Duration
	httpClient       *http.Client
	logger           *slog.Logger
	metrics          MetricsCollector
	outcomeCallbacks []func(Outcome)
	debug            bool
	reportErrors     bool

	interimOut    *lockedWriter
	interimFormat report.Format
	interimColor  bool

	handleSignals bool
	signalOpts    []signals.Option

	current atomic.Pointer[run]
}

// run is the state of one in-progress execution.
type run struct {
	id    string
	state *state.State
}

// New creates a [Runner] with the given options.
//
// At least one job must be configured via [WithJob] or [WithJobs].
// Other options have defaults:
//   - Pool size: 100
//   - Request timeout: 30 seconds
//   - Logger: slog.Default()
//
// Returns [ErrNoJobs] if no jobs are configured, or the first option error.
func New(opts ...Option) (*Runner, error) {
	cfg := &runConfig{
		poolSize: defaultPoolSize,
		timeout:  defaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.jobs) == 0 {
		return nil, ErrNoJobs
	}
	for i, j := range cfg.jobs {
		if j.iterations < 1 || j.endpoint == "" {
			return nil, fmt.Errorf("%w: job %d was not created with NewJob", ErrInvalidJob, i)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	var mc MetricsCollector = metrics.Nop{}
	if cfg.metrics != nil {
		mc = cfg.metrics
	}

	r := &Runner{
		jobs:             append([]Job(nil), cfg.jobs...),
		poolSize:         cfg.poolSize,
		timeout:          cfg.timeout,
		httpClient:       cfg.httpClient,
		logger:           logger,
		metrics:          mc,
		outcomeCallbacks: cfg.outcomeCallbacks,
		debug:            cfg.debug,
		reportErrors:     cfg.reportErrors,
		interimFormat:    cfg.interimFormat,
		interimColor:     cfg.interimColor,
		handleSignals:    cfg.handleSignals,
		signalOpts:       cfg.signalOpts,
	}
	if cfg.interimOut != nil {
		r.interimOut = &lockedWriter{w: cfg.interimOut}
	}
	return r, nil
}

// Jobs returns a copy of the configured jobs.
func (r *Runner) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// PoolSize returns the number of workers.
func (r *Runner) PoolSize() int {
	return r.poolSize
}

// Requested returns the total number of requests a run will send: the sum
// of every job's iterations.
func (r *Runner) Requested() int {
	total := 0
	for _, j := range r.jobs {
		total += j.iterations
	}
	return total
}

// Run executes every iteration of every job and returns the final report.
//
// Run blocks until one of:
//
//   - every request has been processed; workers are joined before Run returns
//   - [Runner.Kill] is called or, with [WithSignalHandling], SIGINT/SIGTERM
//     arrives; queued requests are discarded and in-flight ones are not awaited
//   - ctx is cancelled; handled like a kill
//
// The returned report is the single final report of the run. Per-request
// failures are counted in the report, never returned as errors. Run returns
// an error only if ctx was already done before anything was dispatched.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	cur := &run{
		id:    uuid.NewString(),
		state: state.New(r.Requested()),
	}
	r.current.Store(cur)

	logger := r.logger.With("run_id", cur.id)
	st := cur.state
	r.metrics.SetRequested(st.Requested())

	clientOpts := []client.Option{client.WithLogger(logger), client.WithDebug(r.debug)}
	if r.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(r.httpClient))
	}
	c := client.NewClient(r.timeout, clientOpts...)
	defer c.Close()

	p := pool.New(r.poolSize, logger)

	if r.handleSignals {
		opts := append([]signals.Option{signals.WithLogger(logger)}, r.signalOpts...)
		monitor := signals.NewMonitor(st.Kill, func() { r.emitInterim(cur, logger) }, opts...)
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	logger.Info("run starting",
		"jobs", len(r.jobs),
		"requested", st.Requested(),
		"pool_size", p.Size(),
		"timeout", r.timeout.String(),
	)

	r.dispatch(ctx, p, c, st, logger)

	select {
	case <-st.Done():
	case <-ctx.Done():
		st.Kill()
	}

	if st.Killed() {
		dropped := p.Stop()
		logger.Warn("run killed", "discarded", dropped, "in_flight", p.Running())
	} else {
		p.Shutdown()
	}

	rep := newReport(cur.id, st.Snapshot())
	logger.Info("run finished", rep.LogAttrs()...)
	return rep, nil
}

// dispatch submits one task per iteration. It stops early if the run is
// killed or ctx is cancelled while submitting, and kills the run if the
// pool refuses a task.
func (r *Runner) dispatch(ctx context.Context, p *pool.Pool, c *client.Client, st *state.State, logger *slog.Logger) {
	for ji, job := range r.jobs {
		for it := 0; it < job.iterations; it++ {
			if st.IsDone() || ctx.Err() != nil {
				return
			}
			if err := p.Submit(r.task(ctx, c, st, logger, ji, it, job)); err != nil {
				logger.Error("failed to submit task", "job", ji, "iteration", it, "error", err)
				st.Kill()
				return
			}
		}
	}
}

// task builds the work for one iteration: wait out the delay, send the
// request, count the outcome, then notify metrics and callbacks.
func (r *Runner) task(ctx context.Context, c *client.Client, st *state.State, logger *slog.Logger, ji, it int, job Job) pool.Task {
	return func() {
		if st.IsDone() {
			return
		}
		if job.delay > 0 && !wait(ctx, st, job.delay) {
			return
		}

		r.metrics.TaskStarted()
		defer r.metrics.TaskFinished()

		req, err := job.request(time.Now())
		var resp client.Response
		if err != nil {
			resp = client.Response{Err: err}
		} else {
			// cancelling ctx kills the run but leaves sent requests to finish
			// under the client timeout
			resp = c.Do(context.WithoutCancel(ctx), req)
		}
		out := toOutcome(ji, it, req, resp)

		if !st.Record(out.Kind.state()) {
			logger.Error("outcome not counted, run already complete", "job", ji, "iteration", it)
			return
		}
		r.metrics.ObserveOutcome(out.Kind.String(), out.StatusCode, out.Latency)

		if out.Err != nil {
			attrs := []any{"job", ji, "iteration", it, "method", out.Method, "url", out.URL, "error", out.Err}
			if r.reportErrors {
				logger.Warn("request error", attrs...)
			} else {
				logger.Debug("request error", attrs...)
			}
		}

		for _, cb := range r.outcomeCallbacks {
			invokeCallbackSafe(cb, out, logger)
		}
	}
}

// wait sleeps for d unless the run finishes or ctx is cancelled first.
// It reports whether the full delay elapsed.
func wait(ctx context.Context, st *state.State, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-st.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

func toOutcome(ji, it int, req client.Request, resp client.Response) Outcome {
	out := Outcome{
		JobIndex:    ji,
		Iteration:   it,
		Method:      req.Method,
		URL:         req.URL,
		Latency:     resp.Latency,
		CompletedAt: time.Now(),
	}
	if resp.Err != nil {
		out.Kind = KindError
		out.Err = resp.Err
		return out
	}
	out.Kind = Classify(resp.StatusCode)
	out.StatusCode = resp.StatusCode
	return out
}

// Kill terminates the current run, if any. Run then stops dispatching,
// discards queued requests, and returns its report without waiting for
// in-flight requests. Safe to call at any time and more than once.
func (r *Runner) Kill() {
	if cur := r.current.Load(); cur != nil {
		cur.state.Kill()
	}
}

// Progress returns a report of the current or most recent run. The zero
// Report is returned if Run has not been called.
func (r *Runner) Progress() Report {
	cur := r.current.Load()
	if cur == nil {
		return Report{}
	}
	return newReport(cur.id, cur.state.Snapshot())
}

// emitInterim writes an interim report for cur without changing its state.
func (r *Runner) emitInterim(cur *run, logger *slog.Logger) {
	rep := newReport(cur.id, cur.state.Snapshot())
	if r.interimOut == nil {
		logger.Info("interim report", rep.LogAttrs()...)
		return
	}

	err := r.interimOut.do(func(w io.Writer) error {
		return report.NewRenderer(r.interimFormat, r.interimColor).Render(w, rep.snapshot())
	})
	if err != nil {
		logger.Error("failed to render interim report", "error", err)
	}
}

// invokeCallbackSafe calls an outcome callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func invokeCallbackSafe(cb func(Outcome), out Outcome, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("outcome callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", rec),
				"job", out.JobIndex,
				"iteration", out.Iteration,
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(out)
}

// lockedWriter serializes whole reports written from different goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) do(fn func(io.Writer) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.w)
}
