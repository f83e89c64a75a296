package security

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/omnicore/omniaudit/internal/domain"
)

// ErrForbidden is wrapped by Check when a role lacks a permission.
var ErrForbidden = errors.New("forbidden")

type Role string

const (
	RoleAdmin Role = domain.RoleAdmin
	RoleUser  Role = domain.RoleUser
)

// Permission names one guarded group of routes.
type Permission string

const (
	PermUseChat         Permission = "use_chat"
	PermUseAutomation   Permission = "use_automation"
	PermManageTasks     Permission = "manage_tasks"
	PermReadLogs        Permission = "read_logs"
	PermManageReferrals Permission = "manage_referrals"
	PermViewDashboard   Permission = "view_dashboard"
	PermViewCompliance  Permission = "view_compliance"
	PermSyncNotion      Permission = "sync_notion"
)

type permSet map[Permission]struct{}

func newPermSet(groups ...[]Permission) permSet {
	s := permSet{}
	for _, g := range groups {
		for _, p := range g {
			s[p] = struct{}{}
		}
	}
	return s
}

var (
	memberPerms = []Permission{PermUseChat, PermUseAutomation, PermManageTasks, PermReadLogs, PermManageReferrals}
	adminPerms  = []Permission{PermViewDashboard, PermViewCompliance, PermSyncNotion}
)

// Authorizer answers role/permission questions. Admins hold every member
// permission plus the admin-only ones.
type Authorizer struct {
	grants map[Role]permSet
	logger *slog.Logger
}

func NewAuthorizer(logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		grants: map[Role]permSet{
			RoleUser:  newPermSet(memberPerms),
			RoleAdmin: newPermSet(memberPerms, adminPerms),
		},
		logger: logger,
	}
}

func (a *Authorizer) Allows(role Role, perm Permission) bool {
	_, ok := a.grants[role][perm]
	return ok
}

// Check logs and returns an ErrForbidden wrap on denial.
func (a *Authorizer) Check(role Role, perm Permission) error {
	if a.Allows(role, perm) {
		return nil
	}
	a.logger.Warn("permission denied",
		slog.String("role", string(role)),
		slog.String("permission", string(perm)),
	)
	return fmt.Errorf("%w: role %q lacks %s", ErrForbidden, role, perm)
}
