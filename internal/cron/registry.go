package cron

import (
	"context"
	"fmt"
	"slices"
)

// Job is one unit of periodic work. Run must be safe to repeat; a cycle
// that fails halfway is simply run again on the next tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order under unique names.
type Registry struct {
	jobs []Job
}

// NewRegistry panics on a duplicate name, the same way wiring mistakes
// surface in http.ServeMux. Nil jobs are skipped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == job.Name() }) {
		return fmt.Errorf("cron job %q registered twice", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy in registration order.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
