package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/omnicore/omniaudit/internal/domain"
)

// PostgresComplianceRepository implements domain.ComplianceRepository
type PostgresComplianceRepository struct {
	db *sql.DB
}

// NewPostgresComplianceRepository creates a new compliance repository
func NewPostgresComplianceRepository(db *sql.DB) *PostgresComplianceRepository {
	return &PostgresComplianceRepository{db: db}
}

// Record stores a compliance event
func (r *PostgresComplianceRepository) Record(ctx context.Context, e *domain.ComplianceEvent) error {
	query := `
		INSERT INTO compliance_events (user_id, action, resource, resource_id, status, details, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		nullString(e.UserID), e.Action, e.Resource, e.ResourceID, e.Status, e.Details, e.RequestID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record compliance event: %w", err)
	}
	return nil
}

// ListRecent returns the latest events, newest first
func (r *PostgresComplianceRepository) ListRecent(ctx context.Context, limit int) ([]*domain.ComplianceEvent, error) {
	query := `
		SELECT id, user_id, action, resource, resource_id, status, details, request_id, created_at
		FROM compliance_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance events: %w", err)
	}
	defer rows.Close()

	events := []*domain.ComplianceEvent{}
	for rows.Next() {
		e := &domain.ComplianceEvent{}
		var userID sql.NullString
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.Resource, &e.ResourceID,
			&e.Status, &e.Details, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan compliance event: %w", err)
		}
		e.UserID = userID.String
		events = append(events, e)
	}
	return events, rows.Err()
}
