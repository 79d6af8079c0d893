package config

import (
	"fmt"

	"github.com/jpalmerr/volley"
)

// BuildJobs converts resolved descriptors into SDK jobs, preserving order.
func BuildJobs(ds []Descriptor) ([]volley.Job, error) {
	jobs := make([]volley.Job, 0, len(ds))
	for i, d := range ds {
		job, err := buildJob(d)
		if err != nil {
			if d.Line > 0 {
				return nil, fmt.Errorf("line %d: %w", d.Line, err)
			}
			return nil, fmt.Errorf("request %d: %w", i+1, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func buildJob(d Descriptor) (volley.Job, error) {
	opts := []volley.JobOption{
		volley.WithMethod(d.Method),
		volley.WithIterations(max(d.Iterations, 1)),
		volley.WithDelay(d.Sleep),
		volley.WithRandomize(d.Randomize),
	}
	if len(d.Headers) > 0 {
		opts = append(opts, volley.WithHeaders(d.Headers...))
	}
	for _, line := range d.InvalidHeaders {
		opts = append(opts, volley.WithHeaderLine(line))
	}
	return volley.NewJob(d.Endpoint, opts...)
}
