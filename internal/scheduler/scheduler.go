// Package scheduler runs the brain's periodic maintenance jobs on cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	spec string
	job  Job
	id   cron.EntryID
}

// Scheduler manages scheduled jobs. All specs are evaluated in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*entry
	running bool
}

func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logging.OrNop(logger).Named("scheduler"),
		jobs:   make(map[string]*entry),
	}
}

// Add registers job under name with a standard five-field spec or a
// descriptor such as "@every 30m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("scheduler: job %q: %w", name, err)
	}
	s.jobs[name] = &entry{spec: spec, job: job, id: id}
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	return s.run(name, e.job)
}

func (s *Scheduler) run(name string, job Job) error {
	start := time.Now()
	err := job(s.ctx)
	if err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		return err
	}
	s.logger.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if len(s.jobs) == 0 {
		s.logger.Warn("no jobs registered, scheduler idle")
	}
	s.cron.Start()
	s.running = true
	for name, e := range s.jobs {
		s.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", e.spec),
			zap.Time("next", s.cron.Entry(e.id).Next))
	}
}

// Stop waits for running jobs and cancels their context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()
	if running {
		<-s.cron.Stop().Done()
	}
	s.cancel()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the registered job names and specs.
func (s *Scheduler) Jobs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.jobs))
	for name, e := range s.jobs {
		out[name] = e.spec
	}
	return out
}
