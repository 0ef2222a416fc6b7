package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/robfig/cron/v3"
)

// Scheduler runs named periodic jobs on cron schedules such as "@every 30s"
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// TaskHandler is the function executed by a job
type TaskHandler func(ctx context.Context) error

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs:   make(map[string]cron.EntryID),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds or replaces the job called name
func (s *Scheduler) Register(name, spec string, handler TaskHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() {
		if err := handler(s.ctx); err != nil {
			log.Error("Task failed", "task", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}

	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = id
	log.Debug("Task registered", "task", name, "schedule", spec)
	return nil
}

// Remove drops the job called name
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.jobs[name]; ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
}

// Next returns the next run time of a job, zero if unknown or not started
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	log.Debug("Scheduler started", "jobs", len(s.jobs))
}

// Stop stops scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	log.Debug("Scheduler stopped")
}

// cronLogger routes cron's own messages into the structured log
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Trace("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
