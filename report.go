package volley

import (
	"fmt"
	"io"
	"time"

	"github.com/jpalmerr/volley/internal/report"
	"github.com/jpalmerr/volley/internal/state"
)

// Report is an immutable snapshot of a run's aggregate counters.
//
// Success + Fail + Error always equals Processed, and Processed never
// exceeds Requested. A report taken mid-run (see [Runner.Progress]) has
// Processed < Requested and Killed false.
type Report struct {
	// RunID identifies the run in logs.
	RunID string

	Requested int
	Processed int
	Success   int
	Fail      int
	Error     int

	// Killed is true when the run was terminated before every request was
	// processed.
	Killed bool

	// Took is the wall time since the run started.
	Took time.Duration
}

func newReport(runID string, s state.Snapshot) Report {
	return Report{
		RunID:     runID,
		Requested: s.Requested,
		Processed: s.Processed,
		Success:   s.Success,
		Fail:      s.Fail,
		Error:     s.Error,
		Killed:    s.Killed,
		Took:      s.Elapsed,
	}
}

func (r Report) snapshot() state.Snapshot {
	return state.Snapshot{
		Requested: r.Requested,
		Processed: r.Processed,
		Success:   r.Success,
		Fail:      r.Fail,
		Error:     r.Error,
		Killed:    r.Killed,
		Elapsed:   r.Took,
	}
}

// Done reports whether the run was finished when the report was taken.
func (r Report) Done() bool {
	return r.snapshot().Done()
}

// String returns the single-line text form.
func (r Report) String() string {
	return report.Text(r.snapshot())
}

// Render writes the report to w in the named format: "text" (or "default"),
// "summary", "json", "csv" or "yaml". colored only affects "summary".
//
// Returns an error wrapping [ErrRender] if the format is unknown or the
// write fails.
func (r Report) Render(w io.Writer, format string, colored bool) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return report.NewRenderer(f, colored).Render(w, r.snapshot())
}

// LogAttrs returns the counters as slog key/value pairs.
func (r Report) LogAttrs() []any {
	return []any{
		"run_id", r.RunID,
		"requested", r.Requested,
		"processed", r.Processed,
		"success", r.Success,
		"fail", r.Fail,
		"error", r.Error,
		"killed", r.Killed,
		"took_ms", r.Took.Milliseconds(),
	}
}
