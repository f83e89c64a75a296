package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
)

// TaskRunner executes one run of a task
type TaskRunner interface {
	Run(ctx context.Context, task *domain.Task) error
}

// ScheduledLister loads the tasks that carry a cron schedule
type ScheduledLister interface {
	ListScheduled(ctx context.Context) ([]*domain.Task, error)
}

// Scheduler runs tasks on their cron schedules. A run that is still going
// when the next tick fires makes that tick a no-op for the same task.
type Scheduler struct {
	cron    *cron.Cron
	tasks   ScheduledLister
	runner  TaskRunner
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
	base    context.Context
}

// NewScheduler creates a scheduler. runTimeout bounds each run.
func NewScheduler(tasks ScheduledLister, runner TaskRunner, logger *slog.Logger, runTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	logger = logger.With(slog.String("component", "scheduler"))
	cl := cronLogger{logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		tasks:   tasks,
		runner:  runner,
		logger:  logger,
		timeout: runTimeout,
		entries: make(map[string]cron.EntryID),
		base:    context.Background(),
	}
}

// Schedule registers a task, replacing an earlier registration of the same id
func (s *Scheduler) Schedule(task *domain.Task) error {
	if task.Schedule == "" {
		return fmt.Errorf("task %s has no schedule", task.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddJob(task.Schedule, s.job(task))
	if err != nil {
		return fmt.Errorf("schedule task %s: %w", task.ID, err)
	}
	if old, ok := s.entries[task.ID]; ok {
		s.cron.Remove(old)
	}
	s.entries[task.ID] = id
	metrics.SetScheduledTasks(len(s.entries))

	s.logger.Info("task scheduled",
		slog.String("task_id", task.ID),
		slog.String("schedule", task.Schedule),
	)
	return nil
}

// Start re-registers every scheduled task from the store and starts ticking.
// Runs started after ctx is cancelled see a cancelled context.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.base = context.WithoutCancel(ctx)
	s.mu.Unlock()

	tasks, err := s.tasks.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("load scheduled tasks: %w", err)
	}
	for _, t := range tasks {
		if err := s.Schedule(t); err != nil {
			// one bad row must not keep the rest from running
			s.logger.Error("skipping task with invalid schedule",
				slog.String("task_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("tasks", s.Len()))
	return nil
}

// Stop stops ticking. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

// Len returns the number of registered tasks
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) entry(taskID string) (cron.Entry, bool) {
	s.mu.Lock()
	id, ok := s.entries[taskID]
	s.mu.Unlock()
	if !ok {
		return cron.Entry{}, false
	}
	return s.cron.Entry(id), true
}

func (s *Scheduler) job(task *domain.Task) cron.Job {
	return cron.FuncJob(func() {
		s.mu.Lock()
		base := s.base
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(base, s.timeout)
		defer cancel()

		start := time.Now()
		logger := s.logger.With(slog.String("task_id", task.ID), slog.String("owner", task.Owner))
		if err := s.runner.Run(ctx, task); err != nil {
			metrics.ObserveTaskRun("failure")
			logger.Error("task run failed", slog.String("error", err.Error()), slog.Duration("elapsed", time.Since(start)))
			return
		}
		metrics.ObserveTaskRun("success")
		logger.Info("task run completed", slog.Duration("elapsed", time.Since(start)))
	})
}

// cronLogger adapts slog to the cron package's logger
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err.Error())...)
}
