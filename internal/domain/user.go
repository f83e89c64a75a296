package domain

import (
	"context"
	"time"
)

// Role names
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the JWT auth flow. Not linked to audits.
type User struct {
	ID           string // UUID
	Username     string // Unique username
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         string
	Tier         Tier
	CreatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Count(ctx context.Context) (int, error)
}
