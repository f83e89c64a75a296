package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
)

// PostgresAnalyticsRepository implements domain.AnalyticsRepository
type PostgresAnalyticsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAnalyticsRepository creates a new analytics repository
func NewPostgresAnalyticsRepository(db *sql.DB, logger *slog.Logger) *PostgresAnalyticsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAnalyticsRepository{db: db, logger: logger}
}

// Record stores an event
func (r *PostgresAnalyticsRepository) Record(ctx context.Context, event *domain.AnalyticsEvent) error {
	meta := event.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO analytics_events (event_type, user_id, metadata) VALUES ($1, $2, $3) RETURNING id, created_at`,
		event.EventType, nullString(event.UserID), raw,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		r.logger.Error("failed to record analytics event",
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// CountByType groups events created after since by type
func (r *PostgresAnalyticsRepository) CountByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM analytics_events WHERE created_at >= $1 GROUP BY event_type`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var eventType string
		var n int
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[eventType] = n
	}
	return counts, rows.Err()
}

// CountActiveUsers counts distinct users with events after since
func (r *PostgresAnalyticsRepository) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM analytics_events WHERE user_id IS NOT NULL AND created_at >= $1`,
		since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return n, nil
}
