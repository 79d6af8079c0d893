// Package config turns command-line defaults and script files into request
// descriptors for volley.
//
// A script lists one request per entry. The format is chosen by extension:
//
//	.json         JSON array of objects
//	.yaml, .yml   YAML sequence of mappings
//	.csv          comma-separated, five columns
//	anything else pipe-delimited, five fields per line
//
// Delimited example:
//
//	# ITERATIONS|METHOD|ENDPOINT|HEADERS|SLEEP_MS
//	3|GET|https://api.example.com/items|Accept:application/json|100
//	|POST|https://api.example.com/items/RANDOM|Authorization=Bearer ${TOKEN}|
//
// YAML example:
//
//	- iterations: 3
//	  endpoint: https://api.example.com/items
//	  headers: [ "Accept: application/json" ]
//	  sleep: 100
//
// Empty fields fall back to the command-line defaults. Endpoints and header
// values support environment variable substitution: ${VAR} or ${VAR:-default}.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jpalmerr/volley"
)

var (
	// ErrInvalidScript is wrapped by every [ScriptError].
	ErrInvalidScript = errors.New("invalid script")

	// ErrInvalidHeader marks a header string that cannot be split into a
	// name and a value.
	ErrInvalidHeader = volley.ErrInvalidHeader

	// ErrNoEndpoint is returned when neither an endpoint nor a script was given.
	ErrNoEndpoint = errors.New("an endpoint or a script is required")
)

// Defaults are the command-line values that script entries fall back to.
type Defaults struct {
	// Iterations per request. Values below 1 are treated as 1.
	Iterations int

	// Method defaults to GET when empty.
	Method string

	// Endpoint may be empty when every script entry names its own.
	Endpoint string

	// Headers are raw header strings, each parsed with [ParseHeaders].
	Headers []string

	// Sleep is the delay before each request.
	Sleep time.Duration

	// Randomize enables RANDOM and TIMESTAMP placeholders.
	Randomize bool
}

// Descriptor is one fully resolved request entry.
type Descriptor struct {
	Iterations int
	Method     string
	Endpoint   string
	Headers    []volley.Header
	Sleep      time.Duration
	Randomize  bool

	// InvalidHeaders are header entries that did not parse, kept as
	// written. Requests built from the descriptor fail with an error
	// outcome instead of aborting the run.
	InvalidHeaders []string

	// Line is the script line the entry came from, or 0 for the
	// command-line request.
	Line int
}

// Requests returns the total number of requests across descriptors.
func Requests(ds []Descriptor) int {
	total := 0
	for _, d := range ds {
		total += d.Iterations
	}
	return total
}

// ScriptError reports a malformed script entry.
//
// ScriptError matches both [ErrInvalidScript] and its underlying error
// with errors.Is.
type ScriptError struct {
	// Path is the script file, if known.
	Path string

	// Line is the 1-based source line, or 0 if unknown.
	Line int

	// Entry is the 1-based entry index for formats without line numbers.
	Entry int

	Err error
}

func (e *ScriptError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "script"
	}
	switch {
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", loc, e.Line, e.Err)
	case e.Entry > 0:
		return fmt.Sprintf("%s: entry %d: %v", loc, e.Entry, e.Err)
	default:
		return fmt.Sprintf("%s: %v", loc, e.Err)
	}
}

func (e *ScriptError) Unwrap() []error {
	return []error{ErrInvalidScript, e.Err}
}

// Resolve returns the descriptors for a run: the script's entries if
// script is set, otherwise a single descriptor built from d.
//
// Returns [ErrNoEndpoint] if both d.Endpoint and script are empty.
func Resolve(d Defaults, script string) ([]Descriptor, error) {
	if script != "" {
		return Load(script, d)
	}
	if strings.TrimSpace(d.Endpoint) == "" {
		return nil, ErrNoEndpoint
	}

	desc, err := apply(d, entry{})
	if err != nil {
		return nil, err
	}
	return []Descriptor{desc}, nil
}

// Load reads a script file and resolves its entries against d.
// The format is chosen by file extension.
func Load(path string, d Defaults) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var descs []Descriptor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		descs, err = ParseJSON(data, d)
	case ".yaml", ".yml":
		descs, err = ParseYAML(data, d)
	case ".csv":
		descs, err = ParseCSV(bytes.NewReader(data), d)
	default:
		descs, err = ParseDelimited(bytes.NewReader(data), d)
	}

	var se *ScriptError
	if errors.As(err, &se) && se.Path == "" {
		se.Path = path
	}
	return descs, err
}

// entry is one raw script record before defaults are applied.
type entry struct {
	iterations int
	method     string
	endpoint   string
	headers    []string
	sleep      time.Duration
	randomize  *bool
}

// apply fills empty entry fields from d, expands environment variables, and
// parses headers. A zero iteration count or sleep means "use the default".
// Header entries that do not parse are collected in InvalidHeaders.
func apply(d Defaults, e entry) (Descriptor, error) {
	desc := Descriptor{
		Iterations: e.iterations,
		Method:     strings.ToUpper(strings.TrimSpace(e.method)),
		Endpoint:   strings.TrimSpace(e.endpoint),
		Sleep:      e.sleep,
		Randomize:  d.Randomize,
	}

	if desc.Iterations < 0 {
		return Descriptor{}, fmt.Errorf("iterations cannot be negative, got %d", desc.Iterations)
	}
	if desc.Iterations == 0 {
		desc.Iterations = max(d.Iterations, 1)
	}

	if desc.Method == "" {
		desc.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	}
	if desc.Method == "" {
		desc.Method = http.MethodGet
	}

	if desc.Endpoint == "" {
		desc.Endpoint = strings.TrimSpace(d.Endpoint)
	}
	if desc.Endpoint == "" {
		return Descriptor{}, errors.New("endpoint is required when no default endpoint is set")
	}
	expanded, err := expandEnvVars(desc.Endpoint)
	if err != nil {
		return Descriptor{}, fmt.Errorf("endpoint: %w", err)
	}
	desc.Endpoint = expanded

	if desc.Sleep < 0 {
		return Descriptor{}, fmt.Errorf("sleep cannot be negative, got %s", desc.Sleep)
	}
	if desc.Sleep == 0 {
		desc.Sleep = d.Sleep
	}

	if e.randomize != nil {
		desc.Randomize = *e.randomize
	}

	rawHeaders := e.headers
	if blankHeaders(rawHeaders) {
		rawHeaders = d.Headers
	}
	for _, raw := range rawHeaders {
		for _, part := range splitHeaderList(raw) {
			h, err := volley.ParseHeader(part)
			if err != nil {
				desc.InvalidHeaders = append(desc.InvalidHeaders, part)
				continue
			}
			if h.Value, err = expandEnvVars(h.Value); err != nil {
				return Descriptor{}, fmt.Errorf("header %q: %w", h.Name, err)
			}
			desc.Headers = append(desc.Headers, h)
		}
	}

	return desc, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
// An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
