package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omnicore/omniaudit/internal/domain"
)

const userColumns = `id, username, password_hash, role, tier, created_at`

// PostgresUserRepository stores accounts in the users table.
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

// Create inserts user and fills CreatedAt. A taken username yields domain.ErrConflict.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, tier)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		user.ID, user.Username, user.PasswordHash, user.Role, string(user.Tier),
	).Scan(&user.CreatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return domain.ErrConflict
	}
	r.logger.Error("user insert failed",
		slog.String("username", user.Username),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("insert user: %w", err)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.lookup(ctx, "id", id)
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.lookup(ctx, "username", username)
}

// Count feeds the admin dashboard.
func (r *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// lookup is only called with the fixed column names above.
func (r *PostgresUserRepository) lookup(ctx context.Context, column, value string) (*domain.User, error) {
	var (
		u    domain.User
		tier string
	)
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &tier, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Error("user lookup failed",
			slog.String(column, value),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("select user by %s: %w", column, err)
	}
	u.Tier = domain.Tier(tier)
	return &u, nil
}
