package volley

import (
	"errors"

	"github.com/jpalmerr/volley/internal/report"
)

var (
	// ErrNoJobs is returned by [New] when no job was configured.
	ErrNoJobs = errors.New("at least one job is required")

	// ErrInvalidJob is wrapped by every [NewJob] validation failure.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidHeader is wrapped by every [ParseHeader] failure.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrRender is wrapped by every [Report.Render] failure.
	ErrRender = report.ErrRender
)
