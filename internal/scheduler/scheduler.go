package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ibeckermayer/autobip/internal/logging"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 10 * time.Minute

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages delayed and periodic tasks
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	jobs     map[string]cron.EntryID
	timezone *time.Location
	log      *slog.Logger

	// cancelled by Stop so running jobs wind down
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler with the given timezone. An empty timezone
// means local time.
func New(timezone string) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		log:      logging.Component("scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// wrap adds timeout and logging around a job.
func (s *Scheduler) wrap(name string, job Job, after func()) func() {
	return func() {
		if after != nil {
			defer after()
		}
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		s.log.Info("starting job", "job", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			s.log.Error("job failed", "job", name, "error", err)
		} else {
			s.log.Info("job completed", "job", name, "elapsed", time.Since(start))
		}
	}
}

// AddJob adds a job with a cron schedule
// schedule format: "0 */6 * * *" (every six hours)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, s.wrap(name, job, nil))
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()
	s.log.Info("added job", "job", name, "schedule", schedule)

	return nil
}

// AddOnce runs job a single time, delay after the scheduler starts (or
// after the call, if it is already running). The entry removes itself once
// it has fired.
func (s *Scheduler) AddOnce(name string, delay time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := s.cron.Schedule(&onceSchedule{delay: delay}, cron.FuncJob(s.wrap(name, job, func() {
		s.RemoveJob(name)
	})))
	s.jobs[name] = entryID
	s.log.Info("added one-shot job", "job", name, "delay", delay)
}

// AddTrendJobs schedules trend detection: once after initialDelay, then on
// the cron schedule if one is given.
func (s *Scheduler) AddTrendJobs(initialDelay time.Duration, schedule string, job Job) error {
	s.AddOnce("trends-initial", initialDelay, job)
	if schedule == "" {
		return nil
	}
	return s.AddJob("trends", schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	entryID, ok := s.jobs[name]
	delete(s.jobs, name)
	s.mu.Unlock()

	if ok {
		s.cron.Remove(entryID)
		s.log.Debug("removed job", "job", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and cancels the context of running jobs. The
// returned context is done once they have returned.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("stopping scheduler")
	s.cancel()
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	s.log.Info("running job now", "job", name)
	return job(ctx)
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()

	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]JobInfo, 0, len(s.jobs))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// onceSchedule fires delay after it is first consulted and never again.
// cron treats a zero next time as "never".
type onceSchedule struct {
	delay    time.Duration
	consumed bool
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	if o.consumed {
		return time.Time{}
	}
	o.consumed = true
	return t.Add(o.delay)
}
