package domain

import (
	"context"
	"time"
)

// Task statuses
const (
	TaskActive = "active"
	TaskPaused = "paused"
)

// Task is a named automation job, optionally run on a cron schedule
type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	Status      string     `json:"status"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Log levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogEntry records something that happened to a task or automation query
type LogEntry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"taskId,omitempty"`
	Owner     string    `json:"owner"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskRepository defines data access for tasks
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	ListByOwner(ctx context.Context, owner string) ([]*Task, error)
	ListAll(ctx context.Context) ([]*Task, error)
	ListScheduled(ctx context.Context) ([]*Task, error)
	MarkRun(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int, error)
}

// LogRepository defines data access for log entries
type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]*LogEntry, error)
	CountByLevelSince(ctx context.Context, level string, since time.Time) (int, error)
}
