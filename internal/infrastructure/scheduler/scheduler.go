// Package scheduler runs the worker's periodic jobs on robfig/cron. Jobs
// marked exclusive run on at most one replica at a time behind a
// distributed lock.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

const defaultJobTimeout = 5 * time.Minute

// Job is one cron-driven task.
type Job struct {
	Name string
	// Spec is a standard five-field cron expression or a descriptor such as
	// "@every 5m".
	Spec      string
	Exclusive bool
	LockTTL   time.Duration
	Timeout   time.Duration
	Run       func(ctx context.Context) error
}

// Locker runs fn only when the named lock is free. ran is false when another
// holder has it.
type Locker interface {
	RunExclusive(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (ran bool, err error)
}

// Metrics records job outcomes.
type Metrics interface {
	JobRun(job string, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) JobRun(string, time.Duration, error) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLocker(l Locker) Option   { return func(s *Scheduler) { s.locker = l } }
func WithMetrics(m Metrics) Option { return func(s *Scheduler) { s.metrics = m } }

// EntryInfo describes a registered job.
type EntryInfo struct {
	Name string
	Spec string
	Next time.Time
}

type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	metrics Metrics
	logger  logging.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
}

func New(logger logging.Logger, opts ...Option) *Scheduler {
	log := logger.Named("scheduler")
	adapter := cronLogger{log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		metrics: nopMetrics{},
		logger:  log,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers job. Names are unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.InvalidParam("job name and run func are required")
	}
	if _, err := cron.ParseStandard(job.Spec); err != nil {
		return errors.InvalidParam(fmt.Sprintf("job %s: invalid cron spec %q: %v", job.Name, job.Spec, err))
	}
	if job.Exclusive && s.locker == nil {
		return errors.InvalidParam(fmt.Sprintf("job %s: exclusive jobs need a locker", job.Name))
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}
	if job.LockTTL <= 0 {
		job.LockTTL = job.Timeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return errors.Conflict("job " + job.Name + " already registered")
	}
	id, err := s.cron.AddFunc(job.Spec, func() {
		_ = s.execute(context.Background(), job)
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "register job "+job.Name)
	}
	s.jobs[job.Name] = job
	s.entries[job.Name] = id
	s.logger.Info("job registered", logging.String("job", job.Name), logging.String("spec", job.Spec), logging.Bool("exclusive", job.Exclusive))
	return nil
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return errors.NotFound("job " + name + " is not registered")
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()
	start := time.Now()

	var err error
	ran := true
	if job.Exclusive {
		ran, err = s.locker.RunExclusive(ctx, "job:"+job.Name, job.LockTTL, job.Run)
	} else {
		err = job.Run(ctx)
	}

	if !ran && err == nil {
		s.logger.Debug("job skipped; held by another replica", logging.String("job", job.Name))
		return nil
	}
	elapsed := time.Since(start)
	s.metrics.JobRun(job.Name, elapsed, err)
	if err != nil {
		s.logger.Error("job failed", logging.String("job", job.Name), logging.Duration("elapsed", elapsed), logging.Err(err))
		return err
	}
	s.logger.Info("job finished", logging.String("job", job.Name), logging.Duration("elapsed", elapsed))
	return nil
}

// Entries lists registered jobs ordered by name.
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntryInfo, 0, len(s.jobs))
	for name, job := range s.jobs {
		out = append(out, EntryInfo{Name: name, Spec: job.Spec, Next: s.cron.Entry(s.entries[name]).Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.Entries())))
}

// Stop halts scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	l logging.Logger
}

func kvFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logging.Err(err))...)
}
