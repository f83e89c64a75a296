package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omnicore/omniaudit/internal/domain"
)

// PostgresAuditRepository implements domain.AuditRepository.
// Structured fields are stored as JSONB.
type PostgresAuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAuditRepository creates a new audit repository
func NewPostgresAuditRepository(db *sql.DB, logger *slog.Logger) *PostgresAuditRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAuditRepository{db: db, logger: logger}
}

const auditColumns = `id, business_name, industry, form, strengths, opportunities,
		recommendations, ai_recommendation, workflow_recommendations, created_at`

// Create inserts the audit and fills in ID and CreatedAt
func (r *PostgresAuditRepository) Create(ctx context.Context, audit *domain.Audit) error {
	form, err := json.Marshal(audit.Form)
	if err != nil {
		return fmt.Errorf("failed to marshal form: %w", err)
	}
	strengths, err := json.Marshal(nonNil(audit.Strengths))
	if err != nil {
		return fmt.Errorf("failed to marshal strengths: %w", err)
	}
	opportunities, err := json.Marshal(nonNil(audit.Opportunities))
	if err != nil {
		return fmt.Errorf("failed to marshal opportunities: %w", err)
	}
	recs, err := json.Marshal(nonNil(audit.Recommendations))
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	workflows, err := json.Marshal(nonNil(audit.WorkflowRecommendations))
	if err != nil {
		return fmt.Errorf("failed to marshal workflow recommendations: %w", err)
	}

	query := `
		INSERT INTO audits (business_name, industry, form, strengths, opportunities,
			recommendations, ai_recommendation, workflow_recommendations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		audit.BusinessName,
		audit.Industry,
		form,
		strengths,
		opportunities,
		recs,
		audit.AIRecommendation,
		workflows,
	).Scan(&audit.ID, &audit.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create audit",
			slog.String("business_name", audit.BusinessName),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create audit: %w", err)
	}
	return nil
}

// GetByID retrieves an audit by ID
func (r *PostgresAuditRepository) GetByID(ctx context.Context, id int64) (*domain.Audit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = $1`, id)
	audit, err := scanAudit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get audit",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	return audit, nil
}

// List returns all audits, newest first
func (r *PostgresAuditRepository) List(ctx context.Context) ([]*domain.Audit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM audits ORDER BY created_at DESC, id DESC`)
	if err != nil {
		r.logger.Error("failed to list audits", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	audits := []*domain.Audit{}
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

// Count returns the number of stored audits
func (r *PostgresAuditRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audits: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(row rowScanner) (*domain.Audit, error) {
	audit := &domain.Audit{}
	var form, strengths, opportunities, recs, workflows []byte

	if err := row.Scan(
		&audit.ID,
		&audit.BusinessName,
		&audit.Industry,
		&form,
		&strengths,
		&opportunities,
		&recs,
		&audit.AIRecommendation,
		&workflows,
		&audit.CreatedAt,
	); err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{form, &audit.Form},
		{strengths, &audit.Strengths},
		{opportunities, &audit.Opportunities},
		{recs, &audit.Recommendations},
		{workflows, &audit.WorkflowRecommendations},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("decode audit %d: %w", audit.ID, err)
		}
	}
	return audit, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
