// Package client executes single HTTP requests on behalf of volley workers.
//
// The [Client] is the only part of volley that touches the network. Each call
// to [Client.Do] returns exactly one [Response], carrying either a status code
// or an error classified as [ErrConstruction] or [ErrTransport]. Timeouts are
// enforced per call via the context, so a call never blocks indefinitely.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is used when [NewClient] is given a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// maxDrainedBody caps how much of a response body is read and discarded so
// connections can be reused without buffering large payloads.
const maxDrainedBody = 1 << 20 // 1MB

// connection pooling limits sized for load generation
const (
	defaultMaxIdleConns        = 1000
	defaultMaxIdleConnsPerHost = 100
	defaultIdleConnTimeout     = 60 * time.Second
)

var (
	// ErrConstruction marks a request that could not be built:
	// an invalid method, URL or header.
	ErrConstruction = errors.New("invalid request")

	// ErrTransport marks a request that was built but failed on the wire:
	// connection errors, timeouts, or a broken response body.
	ErrTransport = errors.New("request failed")
)

// Header is a single request header. Order is preserved and names may repeat.
type Header struct {
	Name  string
	Value string
}

// Request describes one HTTP call.
type Request struct {
	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// URL must be an absolute http or https URL with a host.
	URL string

	// Headers are added in order with Header.Add semantics.
	Headers []Header
}

// Response holds the result of a single [Client.Do] call.
type Response struct {
	// StatusCode is the HTTP status code, or zero if Err is set.
	StatusCode int

	// Latency is the time from sending the request until the body was drained.
	Latency time.Duration

	// BytesRead is the number of body bytes read and discarded.
	BytesRead int64

	// Err wraps ErrConstruction or ErrTransport when the call did not
	// produce a status code.
	Err error
}

// Client is an HTTP client wrapper for issuing load-test requests.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	debug      bool
}

// Option configures a [Client].
type Option func(*Client)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug logs every request line and response status at debug level.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithHTTPClient replaces the underlying *http.Client, e.g. with an
// httptest server's client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a [Client] that applies timeout to every call.
//
// The transport keeps a large idle pool because a load test hammers a small
// number of hosts from many workers at once. There is no client-wide timeout;
// the per-call timeout is applied through the request context in [Client.Do].
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
			// redirects are reported as-is: a 301 is a failure, not a hop
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do performs req and returns a [Response].
//
// Do always returns a Response; errors are reported in its Err field and
// wrap either [ErrConstruction] or [ErrTransport].
func (c *Client) Do(ctx context.Context, req Request) Response {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return Response{Err: err}
	}

	ctx, cancel := context.WithTimeout(httpReq.Context(), c.timeout)
	defer cancel()
	httpReq = httpReq.WithContext(ctx)

	if c.debug {
		c.logger.Debug("sending request", "method", httpReq.Method, "url", httpReq.URL.String(),
			"headers", len(httpReq.Header))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Err:     fmt.Errorf("%w: %w", ErrTransport, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainedBody))
	latency := time.Since(start)
	if err != nil {
		return Response{
			Latency:   latency,
			BytesRead: n,
			Err:       fmt.Errorf("%w: reading body: %w", ErrTransport, err),
		}
	}

	if c.debug {
		c.logger.Debug("received response", "method", httpReq.Method, "url", httpReq.URL.String(),
			"status", resp.StatusCode, "latency_ms", latency.Milliseconds())
	}

	return Response{
		StatusCode: resp.StatusCode,
		Latency:    latency,
		BytesRead:  n,
	}
}

// build validates req and turns it into an *http.Request.
func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("%w: method %q", ErrConstruction, req.Method)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: url %q: %w", ErrConstruction, req.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: url %q must use http or https", ErrConstruction, req.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url %q has no host", ErrConstruction, req.URL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}

	for _, h := range req.Headers {
		if !validToken(h.Name) {
			return nil, fmt.Errorf("%w: header name %q", ErrConstruction, h.Name)
		}
		if strings.ContainsAny(h.Value, "\r\n") {
			return nil, fmt.Errorf("%w: header %q has a line break in its value", ErrConstruction, h.Name)
		}
		if strings.EqualFold(h.Name, "Host") {
			httpReq.Host = h.Value
			continue
		}
		httpReq.Header.Add(h.Name, h.Value)
	}
	return httpReq, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. The client remains
// usable after Close.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

func validMethod(method string) bool {
	return validToken(method)
}

// validToken reports whether s is a non-empty RFC 7230 token.
func validToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", b) >= 0
}
