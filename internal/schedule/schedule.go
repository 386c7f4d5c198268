// Package schedule runs the pipeline on a cron timetable.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner triggers a job on a cron schedule in a fixed timezone. A tick that
// fires while the previous job is still running is skipped.
type Runner struct {
	cron *cron.Cron
	mu   sync.Mutex
	spec string
}

// New creates a Runner that executes job according to the cron spec,
// interpreted in the given timezone.
func New(spec, timezone string, job func()) (*Runner, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	r := &Runner{cron: cron.New(cron.WithLocation(loc)), spec: spec}
	if _, err := r.cron.AddFunc(spec, r.wrap(job)); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return r, nil
}

func (r *Runner) wrap(job func()) func() {
	return func() {
		if !r.mu.TryLock() {
			log.Printf("Skipping scheduled run: previous run still in progress")
			return
		}
		defer r.mu.Unlock()
		job()
	}
}

// Run starts the schedule and blocks until ctx is canceled. A job in flight
// finishes before Run returns.
func (r *Runner) Run(ctx context.Context) {
	r.cron.Start()
	log.Printf("Scheduler started (%s), next run at %s", r.spec, r.Next().Format(time.RFC3339))

	<-ctx.Done()
	log.Printf("Stopping scheduler")
	<-r.cron.Stop().Done()
}

// Next reports when the next scheduled run fires. Zero before Run starts
// the schedule.
func (r *Runner) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
