package volley

import (
	"time"

	"github.com/jpalmerr/volley/internal/state"
)

// Kind classifies the result of one request.
//
// Kind is an int type with three values: [KindSuccess], [KindFailure] and
// [KindError]. Its String form is the metric label and report key.
type Kind int

const (
	// KindSuccess is a response with a 2xx status code.
	KindSuccess Kind = iota

	// KindFailure is a response with any other status code, including
	// redirects.
	KindFailure

	// KindError is a request that could not be built or sent.
	KindError
)

// String returns "success", "fail" or "error".
func (k Kind) String() string {
	return k.state().String()
}

func (k Kind) state() state.Kind {
	switch k {
	case KindSuccess:
		return state.Success
	case KindFailure:
		return state.Failure
	default:
		return state.Error
	}
}

// Classify maps an HTTP status code to [KindSuccess] or [KindFailure].
// Only 200 <= code < 300 is a success.
func Classify(code int) Kind {
	if state.Classify(code) == state.Success {
		return KindSuccess
	}
	return KindFailure
}

// Outcome holds the result of executing one iteration of a [Job].
//
// Exactly one Outcome is produced per executed iteration. It is passed by
// value to callbacks registered with [WithOutcomeCallback].
type Outcome struct {
	// JobIndex is the position of the job in the runner's job list.
	JobIndex int

	// Iteration is the zero-based iteration number within the job.
	Iteration int

	// Method and URL are the request as sent, after placeholder expansion.
	Method string
	URL    string

	// Kind classifies the outcome.
	Kind Kind

	// StatusCode is the HTTP status code. Zero when Kind is KindError.
	StatusCode int

	// Latency is the time spent in the HTTP call, excluding the job delay.
	Latency time.Duration

	// Err is set only when Kind is KindError.
	Err error

	// CompletedAt is when the call returned.
	CompletedAt time.Time
}
