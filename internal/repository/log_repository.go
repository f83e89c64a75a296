package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
)

// PostgresLogRepository implements domain.LogRepository
type PostgresLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresLogRepository creates a new log repository
func NewPostgresLogRepository(db *sql.DB, logger *slog.Logger) *PostgresLogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLogRepository{db: db, logger: logger}
}

// Append stores a log entry and fills in ID and CreatedAt
func (r *PostgresLogRepository) Append(ctx context.Context, entry *domain.LogEntry) error {
	query := `
		INSERT INTO logs (task_id, owner, level, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		nullString(entry.TaskID),
		entry.Owner,
		entry.Level,
		entry.Message,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		r.logger.Error("failed to append log entry",
			slog.String("owner", entry.Owner),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's most recent entries, newest first
func (r *PostgresLogRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]*domain.LogEntry, error) {
	query := `
		SELECT id, task_id, owner, level, message, created_at
		FROM logs
		WHERE owner = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	entries := []*domain.LogEntry{}
	for rows.Next() {
		e := &domain.LogEntry{}
		var taskID sql.NullString
		if err := rows.Scan(&e.ID, &taskID, &e.Owner, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		e.TaskID = taskID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByLevelSince counts entries of one level created after since
func (r *PostgresLogRepository) CountByLevelSince(ctx context.Context, level string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logs WHERE level = $1 AND created_at >= $2`,
		level, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count logs: %w", err)
	}
	return n, nil
}
