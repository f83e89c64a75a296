package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omnicore/omniaudit/internal/domain"
)

// PostgresReferralRepository implements domain.ReferralRepository
type PostgresReferralRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReferralRepository creates a new referral repository
func NewPostgresReferralRepository(db *sql.DB, logger *slog.Logger) *PostgresReferralRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReferralRepository{db: db, logger: logger}
}

// CreateCode stores a new code. A user owns at most one code.
func (r *PostgresReferralRepository) CreateCode(ctx context.Context, code *domain.ReferralCode) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO referral_codes (code, user_id) VALUES ($1, $2) RETURNING uses, created_at`,
		code.Code, code.UserID,
	).Scan(&code.Uses, &code.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to create referral code: %w", err)
	}
	return nil
}

// GetCodeByUser returns the user's code
func (r *PostgresReferralRepository) GetCodeByUser(ctx context.Context, userID string) (*domain.ReferralCode, error) {
	code := &domain.ReferralCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT code, user_id, uses, created_at FROM referral_codes WHERE user_id = $1`,
		userID,
	).Scan(&code.Code, &code.UserID, &code.Uses, &code.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral code: %w", err)
	}
	return code, nil
}

// GetCode looks up a code
func (r *PostgresReferralRepository) GetCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	rc := &domain.ReferralCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT code, user_id, uses, created_at FROM referral_codes WHERE code = $1`,
		code,
	).Scan(&rc.Code, &rc.UserID, &rc.Uses, &rc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral code: %w", err)
	}
	return rc, nil
}

// Redeem bumps the code's use count and grants the owner a reward in one transaction.
// An unknown code yields domain.ErrInvalidReferral and changes nothing.
func (r *PostgresReferralRepository) Redeem(ctx context.Context, code string, referredUserID string, credits int) (*domain.Reward, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reward := &domain.Reward{
		ReferredUserID: referredUserID,
		Code:           code,
		Credits:        credits,
		Status:         "granted",
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE referral_codes SET uses = uses + 1 WHERE code = $1 RETURNING user_id`,
		code,
	).Scan(&reward.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidReferral
		}
		return nil, fmt.Errorf("failed to redeem referral code: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO referral_rewards (user_id, referred_user_id, code, credits, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		reward.UserID, reward.ReferredUserID, reward.Code, reward.Credits, reward.Status,
	).Scan(&reward.ID, &reward.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reward: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit referral: %w", err)
	}

	r.logger.Info("referral redeemed",
		slog.String("code", code),
		slog.String("referrer", reward.UserID),
		slog.Int("credits", credits),
	)
	return reward, nil
}

// ListRewards returns rewards earned by the user, newest first
func (r *PostgresReferralRepository) ListRewards(ctx context.Context, userID string) ([]*domain.Reward, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, referred_user_id, code, credits, status, created_at
		 FROM referral_rewards WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	rewards := []*domain.Reward{}
	for rows.Next() {
		rw := &domain.Reward{}
		if err := rows.Scan(&rw.ID, &rw.UserID, &rw.ReferredUserID, &rw.Code,
			&rw.Credits, &rw.Status, &rw.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, rw)
	}
	return rewards, rows.Err()
}

// Stats summarizes codes and redemptions across all users
func (r *PostgresReferralRepository) Stats(ctx context.Context) (*domain.ReferralStats, error) {
	s := &domain.ReferralStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM referral_codes),
			(SELECT COUNT(*) FROM referral_rewards),
			(SELECT COALESCE(SUM(credits), 0) FROM referral_rewards)
	`).Scan(&s.Codes, &s.Redemptions, &s.CreditsGiven)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral stats: %w", err)
	}
	return s, nil
}
