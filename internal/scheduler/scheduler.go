// file: internal/scheduler/scheduler.go
// version: 2.0.0
// guid: 3b4c5d6e-7f8a-9b0c-1d2e-3f4a5b6c7d8e

package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReclaimSpec runs the rate limiter sweep once an hour.
const DefaultReclaimSpec = "@every 1h"

// Scheduler runs named maintenance jobs on cron schedules. A panicking job is logged
// and does not stop later runs.
type Scheduler struct {
	cron  *cron.Cron
	names map[string]cron.EntryID
}

// NewScheduler creates a stopped scheduler. Specs accept an optional seconds field and
// descriptors such as @hourly or @every 10m.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		names: make(map[string]cron.EntryID),
	}
}

// Add registers fn under name. Names must be unique.
func (s *Scheduler) Add(name, spec string, fn func()) error {
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		fn()
		log.Printf("[DEBUG] Scheduled job %s finished in %v", name, time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.names[name] = id
	log.Printf("[INFO] Scheduled job %s (%s)", name, spec)
	return nil
}

// Next reports when name runs next. It is zero before Start.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.names[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[INFO] Scheduler started with %d jobs", len(s.names))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Printf("[INFO] Scheduler stopped")
}

// Reclaimer drops idle state, returning how many entries were removed.
type Reclaimer interface {
	Reclaim() int
}

// ReclaimJob wraps a rate limiter sweep as a scheduled job.
func ReclaimJob(r Reclaimer) func() {
	return func() {
		removed := r.Reclaim()
		log.Printf("[INFO] Cleared %d idle identities from rate limit store", removed)
	}
}
