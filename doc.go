// Package volley is an HTTP load generator that can be embedded as a
// library or run as the volley CLI.
//
// A run takes a list of [Job] values, sends every iteration of every job
// through a fixed-size worker pool, and counts each response as a success
// (2xx), a failure (any other status) or an error (the request could not be
// built or sent). The result is a [Report] that can be rendered as text,
// a summary table, JSON, CSV or YAML.
//
// # Quick Start
//
//	job, _ := volley.NewJob("https://api.example.com/items",
//	    volley.WithIterations(1000),
//	    volley.WithHeader("Accept", "application/json"),
//	)
//	r, _ := volley.New(volley.WithJob(job), volley.WithPoolSize(50))
//
//	rep, _ := r.Run(context.Background())
//	fmt.Println(rep) // requested=1000 processed=1000 success=998 fail=2 error=0 duration=4.2s
//
// # Configuration
//
// Runners and jobs use the functional options pattern:
//
//	r, err := volley.New(
//	    volley.WithJobs(jobs...),
//	    volley.WithPoolSize(200),
//	    volley.WithTimeout(5 * time.Second),
//	    volley.WithLogger(logger),
//	    volley.WithOutcomeCallback(func(o volley.Outcome) { ... }),
//	)
//
// Jobs with [WithRandomize] replace RANDOM and TIMESTAMP in the endpoint and
// header values with fresh values for every iteration.
//
// # Termination
//
// A run ends when every request has been counted, when [Runner.Kill] is
// called, or when its context is cancelled. A killed run discards requests
// that have not started and returns without waiting for requests in flight.
// With [WithSignalHandling], SIGINT and SIGTERM kill the run and SIGUSR1
// writes an interim report without stopping it.
//
// # Architecture
//
// The engine consists of several internal packages (under internal/):
//
//   - internal/pool: fixed worker pool over an unbounded FIFO queue
//   - internal/state: mutex-guarded outcome counters and kill switch
//   - internal/client: single HTTP call with per-call timeout
//   - internal/report: text, summary, JSON, CSV and YAML rendering
//   - internal/signals: terminate and status signal handling
//   - internal/metrics: Prometheus collector and /metrics server
//
// The config package loads jobs from script files and is shared with the
// CLI in cmd/volley.
package volley
