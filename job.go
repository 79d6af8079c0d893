package volley

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/volley/internal/client"
)

// Placeholders expanded in endpoints and header values when a job is
// randomized. Each iteration gets fresh values.
const (
	// PlaceholderRandom is replaced with a random unsigned 32-bit integer.
	PlaceholderRandom = "RANDOM"

	// PlaceholderTimestamp is replaced with the current Unix time in milliseconds.
	PlaceholderTimestamp = "TIMESTAMP"
)

// Job describes one request repeated a number of times.
//
// Job is immutable after creation via [NewJob]. Getters return copies, so
// a Job can be shared between goroutines and each iteration executes an
// independent clone.
//
// NewJob does not validate the method, the URL beyond non-emptiness, or
// header lines: a malformed request is counted as an error outcome for each
// iteration instead of aborting the run.
type Job struct {
	method      string
	endpoint    string
	headers     []Header
	headerLines []string
	iterations  int
	delay       time.Duration
	randomize   bool
}

// NewJob creates a [Job] for endpoint with the given options.
//
// Defaults: GET, one iteration, no delay, no headers, no randomization.
// Returns an error wrapping [ErrInvalidJob] if endpoint is empty or an
// option is invalid.
//
// Example:
//
//	job, err := volley.NewJob("https://api.example.com/items",
//	    volley.WithMethod("POST"),
//	    volley.WithIterations(500),
//	    volley.WithHeader("Authorization", "Bearer token"),
//	)
func NewJob(endpoint string, opts ...JobOption) (Job, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Job{}, fmt.Errorf("%w: endpoint cannot be empty", ErrInvalidJob)
	}

	cfg := &jobConfig{
		method:     http.MethodGet,
		iterations: 1,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Job{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
	}

	return Job{
		method:      cfg.method,
		endpoint:    endpoint,
		headers:     cfg.headers,
		headerLines: cfg.headerLines,
		iterations:  cfg.iterations,
		delay:       cfg.delay,
		randomize:   cfg.randomize,
	}, nil
}

// Method returns the HTTP method, upper-cased.
func (j Job) Method() string {
	return j.method
}

// Endpoint returns the request URL before placeholder expansion.
func (j Job) Endpoint() string {
	return j.endpoint
}

// Headers returns a copy of the request headers in order.
func (j Job) Headers() []Header {
	if j.headers == nil {
		return nil
	}
	return append([]Header(nil), j.headers...)
}

// Iterations returns how many times the request is sent. Always >= 1.
func (j Job) Iterations() int {
	return j.iterations
}

// Delay returns the wait before each iteration's request.
func (j Job) Delay() time.Duration {
	return j.delay
}

// Randomize reports whether placeholders are expanded per iteration.
func (j Job) Randomize() bool {
	return j.randomize
}

// HeaderLines returns a copy of the unparsed header lines added with
// [WithHeaderLine].
func (j Job) HeaderLines() []string {
	if j.headerLines == nil {
		return nil
	}
	return append([]string(nil), j.headerLines...)
}

// request resolves one iteration of the job into a client request. Header
// lines are parsed here; a line that does not parse returns an error
// wrapping client.ErrConstruction and [ErrInvalidHeader].
func (j Job) request(now time.Time) (client.Request, error) {
	req := client.Request{
		Method:  j.method,
		URL:     j.endpoint,
		Headers: make([]client.Header, 0, len(j.headers)+len(j.headerLines)),
	}
	for _, h := range j.headers {
		req.Headers = append(req.Headers, client.Header{Name: h.Name, Value: h.Value})
	}
	for _, line := range j.headerLines {
		h, err := ParseHeader(line)
		if err != nil {
			return req, fmt.Errorf("%w: %w", client.ErrConstruction, err)
		}
		req.Headers = append(req.Headers, client.Header{Name: h.Name, Value: h.Value})
	}
	if !j.randomize {
		return req, nil
	}

	req.URL = expandPlaceholders(req.URL, now)
	for i := range req.Headers {
		req.Headers[i].Value = expandPlaceholders(req.Headers[i].Value, now)
	}
	return req, nil
}

// expandPlaceholders replaces every RANDOM and TIMESTAMP in s. All RANDOM
// occurrences within one string share a value.
func expandPlaceholders(s string, now time.Time) string {
	if strings.Contains(s, PlaceholderRandom) {
		s = strings.ReplaceAll(s, PlaceholderRandom, strconv.FormatUint(uint64(rand.Uint32()), 10))
	}
	if strings.Contains(s, PlaceholderTimestamp) {
		s = strings.ReplaceAll(s, PlaceholderTimestamp, strconv.FormatInt(now.UnixMilli(), 10))
	}
	return s
}
