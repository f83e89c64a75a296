package service

import "github.com/omnicore/omniaudit/internal/domain"

// Caller identifies the authenticated user behind a request
type Caller struct {
	UserID   string
	Username string
	Role     string
	Tier     domain.Tier
}

// IsAdmin reports whether the caller has the admin role
func (c Caller) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}
