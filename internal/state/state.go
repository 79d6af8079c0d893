package state

import (
	"sync"
	"time"
)

// Kind classifies the result of a single job execution.
type Kind int

const (
	// Success is a response with a 2xx status code.
	Success Kind = iota

	// Failure is a response with any non-2xx status code.
	Failure

	// Error is a request that could not be built or sent.
	Error
)

// String returns the lowercase name of the kind, used as a metric label.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "fail"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Classify maps an HTTP status code to [Success] or [Failure].
// Only 200 <= code < 300 is a success.
func Classify(code int) Kind {
	if code >= 200 && code < 300 {
		return Success
	}
	return Failure
}

// Snapshot is a consistent copy of the counters at one point in time.
type Snapshot struct {
	Requested int
	Processed int
	Success   int
	Fail      int
	Error     int
	Killed    bool
	Elapsed   time.Duration
}

// Done reports whether the snapshot was taken after the run finished.
func (s Snapshot) Done() bool {
	return s.Killed || s.Processed == s.Requested
}

// State tracks how many jobs were requested and how each processed job ended.
//
// The requested count is fixed at construction. Processed and the per-kind
// counters only ever increase, and processed never exceeds requested:
// [State.Record] refuses to count past the target.
type State struct {
	mu        sync.Mutex
	start     time.Time
	requested int
	processed int
	success   int
	fail      int
	error     int
	killed    bool

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a State expecting requested records.
// A State with requested == 0 is done immediately.
func New(requested int) *State {
	if requested < 0 {
		requested = 0
	}
	s := &State{
		start:     time.Now(),
		requested: requested,
		done:      make(chan struct{}),
	}
	if requested == 0 {
		s.closeDone()
	}
	return s
}

// Record counts one processed job of the given kind.
//
// Record returns false without counting anything if processed already
// equals requested; that only happens if a caller submits more executions
// than it declared up front.
func (s *State) Record(kind Kind) bool {
	s.mu.Lock()
	if s.processed >= s.requested {
		s.mu.Unlock()
		return false
	}

	s.processed++
	switch kind {
	case Success:
		s.success++
	case Failure:
		s.fail++
	default:
		s.error++
	}
	finished := s.processed == s.requested
	s.mu.Unlock()

	if finished {
		s.closeDone()
	}
	return true
}

// Kill marks the run as finished regardless of how many jobs were processed.
// Safe to call multiple times.
func (s *State) Kill() {
	s.mu.Lock()
	s.killed = true
	s.mu.Unlock()

	s.closeDone()
}

// Killed reports whether [State.Kill] was called.
func (s *State) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// IsDone reports killed || processed == requested.
func (s *State) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed || s.processed == s.requested
}

// Done returns a channel that is closed once the run is done, either because
// every requested job was recorded or because the run was killed.
func (s *State) Done() <-chan struct{} {
	return s.done
}

// Requested returns the number of records the state expects.
func (s *State) Requested() int {
	return s.requested
}

// Snapshot returns a copy of the counters taken under the lock.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Requested: s.requested,
		Processed: s.processed,
		Success:   s.success,
		Fail:      s.fail,
		Error:     s.error,
		Killed:    s.killed,
		Elapsed:   time.Since(s.start),
	}
}

func (s *State) closeDone() {
	s.closeOnce.Do(func() { close(s.done) })
}
