package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
)

// TaskScheduler registers tasks with the in-process cron
type TaskScheduler interface {
	Schedule(task *domain.Task) error
}

// TaskService manages automation tasks
type TaskService struct {
	repo      domain.TaskRepository
	logs      *LogService
	generator Generator
	scheduler TaskScheduler
	events    EventRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewTaskService creates a task service
func NewTaskService(repo domain.TaskRepository, logs *LogService, generator Generator, events EventRecorder, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		repo:      repo,
		logs:      logs,
		generator: generator,
		events:    events,
		logger:    logger.With(slog.String("component", "task_service")),
		now:       time.Now,
	}
}

// SetScheduler attaches the scheduler once it exists; it needs the service to run tasks
func (s *TaskService) SetScheduler(scheduler TaskScheduler) {
	s.scheduler = scheduler
}

// TaskInput is the create payload
type TaskInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Schedule    string `json:"schedule,omitempty" validate:"max=100"`
	Prompt      string `json:"prompt,omitempty" validate:"max=4000"`
}

// ValidateSchedule parses a standard five-field cron spec or @descriptor
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// Create stores a task owned by the caller and registers its schedule
func (s *TaskService) Create(ctx context.Context, caller Caller, in TaskInput) (*domain.Task, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Schedule = strings.TrimSpace(in.Schedule)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Schedule != "" {
		if err := ValidateSchedule(in.Schedule); err != nil {
			return nil, invalid("schedule", "cron")
		}
	}

	task := &domain.Task{
		ID:          uuid.NewString(),
		Owner:       caller.Username,
		Name:        in.Name,
		Description: in.Description,
		Schedule:    in.Schedule,
		Prompt:      in.Prompt,
		Status:      domain.TaskActive,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if task.Schedule != "" && s.scheduler != nil {
		if err := s.scheduler.Schedule(task); err != nil {
			s.logger.Error("failed to schedule task",
				slog.String("task_id", task.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logs.writeQuietly(ctx, &domain.LogEntry{
		TaskID:  task.ID,
		Owner:   task.Owner,
		Level:   domain.LevelInfo,
		Message: fmt.Sprintf("Task %q created", task.Name),
	})
	if s.events != nil {
		s.events.Track(ctx, domain.EventTaskCreated, caller.UserID, map[string]string{"task_id": task.ID})
	}
	return task, nil
}

// List returns the caller's tasks; admins see every task
func (s *TaskService) List(ctx context.Context, caller Caller) ([]*domain.Task, error) {
	if caller.IsAdmin() {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByOwner(ctx, caller.Username)
}

// Run executes one task: answers its prompt if any, writes a log entry and
// records the run time.
func (s *TaskService) Run(ctx context.Context, task *domain.Task) error {
	started := s.now()
	entry := &domain.LogEntry{
		TaskID:  task.ID,
		Owner:   task.Owner,
		Level:   domain.LevelInfo,
		Message: fmt.Sprintf("Task %q ran", task.Name),
	}

	var runErr error
	if task.Prompt != "" {
		if s.generator == nil {
			runErr = llm.ErrProviderUnavailable
		} else {
			resp, err := s.generator.Generate(ctx, llm.GPT4oMini, llm.Request{
				System: "You are an automation assistant running a scheduled business task. Reply concisely.",
				Prompt: task.Prompt,
			})
			if err != nil {
				runErr = err
			} else {
				entry.Message = fmt.Sprintf("Task %q ran: %s", task.Name, strings.TrimSpace(resp.Content))
			}
		}
	}
	if runErr != nil {
		entry.Level = domain.LevelError
		entry.Message = fmt.Sprintf("Task %q failed: %v", task.Name, runErr)
	}

	s.logs.writeQuietly(ctx, entry)
	if err := s.repo.MarkRun(ctx, task.ID, started); err != nil {
		s.logger.Error("failed to record task run", slog.String("task_id", task.ID), slog.String("error", err.Error()))
	}
	return runErr
}
