package volley

import (
	"errors"
	"strings"
	"time"
)

// jobConfig holds mutable state during job construction.
type jobConfig struct {
	method      string
	headers     []Header
	headerLines []string
	iterations  int
	delay       time.Duration
	randomize   bool
}

// JobOption is a function that configures a [Job] during construction.
//
// JobOption implements the functional options pattern. Options return an
// error if validation fails.
//
// Built-in options: [WithMethod], [WithHeader], [WithHeaders],
// [WithHeaderLine], [WithIterations], [WithDelay], [WithRandomize].
type JobOption func(*jobConfig) error

// WithMethod sets the HTTP method. It is upper-cased; an empty method keeps
// the GET default. The method token itself is checked when the request is
// built, so an unusual method reaches the client unchanged.
func WithMethod(method string) JobOption {
	return func(cfg *jobConfig) error {
		method = strings.ToUpper(strings.TrimSpace(method))
		if method != "" {
			cfg.method = method
		}
		return nil
	}
}

// WithHeader appends a single header. Can be called multiple times; repeated
// names are sent as repeated headers.
//
// Returns an error if name is empty.
func WithHeader(name, value string) JobOption {
	return func(cfg *jobConfig) error {
		if name == "" {
			return errors.New("header name cannot be empty")
		}
		cfg.headers = append(cfg.headers, Header{Name: name, Value: value})
		return nil
	}
}

// WithHeaders appends headers in order.
//
// Returns an error if any header has an empty name.
func WithHeaders(headers ...Header) JobOption {
	return func(cfg *jobConfig) error {
		for _, h := range headers {
			if h.Name == "" {
				return errors.New("header name cannot be empty")
			}
		}
		cfg.headers = append(cfg.headers, headers...)
		return nil
	}
}

// WithHeaderLine appends a header given as "Name: Value" or "Name=Value",
// parsed with [ParseHeader] when each request is built. A line that does not
// parse is not a construction error: every iteration of the job is counted
// as an error outcome instead.
func WithHeaderLine(line string) JobOption {
	return func(cfg *jobConfig) error {
		cfg.headerLines = append(cfg.headerLines, line)
		return nil
	}
}

// WithIterations sets how many times the request is sent.
//
// Returns an error if n is less than 1.
func WithIterations(n int) JobOption {
	return func(cfg *jobConfig) error {
		if n < 1 {
			return errors.New("iterations must be at least 1")
		}
		cfg.iterations = n
		return nil
	}
}

// WithDelay sets the wait before each iteration's request. The wait happens
// on the worker, so it holds a pool slot.
//
// Returns an error if d is negative.
func WithDelay(d time.Duration) JobOption {
	return func(cfg *jobConfig) error {
		if d < 0 {
			return errors.New("delay cannot be negative")
		}
		cfg.delay = d
		return nil
	}
}

// WithRandomize enables RANDOM and TIMESTAMP expansion in the endpoint and
// header values. Each iteration resolves its own values.
func WithRandomize(enabled bool) JobOption {
	return func(cfg *jobConfig) error {
		cfg.randomize = enabled
		return nil
	}
}
