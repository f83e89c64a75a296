package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
)

// PostgresTaskRepository implements domain.TaskRepository
type PostgresTaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskRepository creates a new task repository
func NewPostgresTaskRepository(db *sql.DB, logger *slog.Logger) *PostgresTaskRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskRepository{db: db, logger: logger}
}

const taskColumns = `id, owner, name, description, schedule, prompt, status, last_run_at, created_at`

// Create inserts a task
func (r *PostgresTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, owner, name, description, schedule, prompt, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Owner,
		task.Name,
		task.Description,
		task.Schedule,
		task.Prompt,
		task.Status,
	).Scan(&task.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create task",
			slog.String("owner", task.Owner),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByOwner returns the owner's tasks, newest first
func (r *PostgresTaskRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner = $1 ORDER BY created_at DESC`, owner)
}

// ListAll returns every task, newest first
func (r *PostgresTaskRepository) ListAll(ctx context.Context) ([]*domain.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

// ListScheduled returns active tasks that carry a cron schedule
func (r *PostgresTaskRepository) ListScheduled(ctx context.Context) ([]*domain.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE schedule <> '' AND status = $1`, domain.TaskActive)
}

// MarkRun records the time of the latest run
func (r *PostgresTaskRepository) MarkRun(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tasks SET last_run_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark task run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of tasks
func (r *PostgresTaskRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

func (r *PostgresTaskRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*domain.Task, error) {
	task := &domain.Task{}
	var lastRun sql.NullTime
	if err := row.Scan(
		&task.ID,
		&task.Owner,
		&task.Name,
		&task.Description,
		&task.Schedule,
		&task.Prompt,
		&task.Status,
		&lastRun,
		&task.CreatedAt,
	); err != nil {
		return nil, err
	}
	if lastRun.Valid {
		t := lastRun.Time
		task.LastRunAt = &t
	}
	return task, nil
}
