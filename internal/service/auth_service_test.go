package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/security/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo, *memReferralRepo, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", "omniaudit-test", time.Hour)
	require.NoError(t, err)
	users := newMemUserRepo()
	refRepo := newMemReferralRepo()
	referrals := NewReferralService(refRepo, 25, nil, nil)
	return NewAuthService(users, tokens, referrals, &recordingEvents{}, nil), users, refRepo, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "  alice  ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, domain.RoleUser, res.Role)
	assert.Equal(t, domain.TierProBono, res.Tier)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, 3600, res.ExpiresIn)

	stored, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)

	claims, err := tokens.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.UserID)
	assert.Equal(t, string(domain.TierProBono), claims.Tier)

	login, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, login.UserID)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	profile, err := svc.Profile(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: "password123"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Password: "password456"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RegisterInput
		field string
		rule  string
	}{
		{"short username", RegisterInput{Username: "ab", Password: "password123"}, "username", "min"},
		{"short password", RegisterInput{Username: "carol", Password: "short"}, "password", "min"},
		{"missing username", RegisterInput{Password: "password123"}, "username", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, FieldError{Field: tt.field, Rule: tt.rule})
		})
	}

	n, _ := users.Count(ctx)
	assert.Zero(t, n)
}

func TestRegister_WithReferralCode(t *testing.T) {
	svc, users, refRepo, _ := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, refRepo.CreateCode(ctx, &domain.ReferralCode{Code: "ABCD1234", UserID: "referrer"}))

	res, err := svc.Register(ctx, RegisterInput{Username: "dave", Password: "password123", ReferralCode: "abcd1234"})
	require.NoError(t, err)

	rewards, err := refRepo.ListRewards(ctx, "referrer")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, res.UserID, rewards[0].ReferredUserID)
	assert.Equal(t, 25, rewards[0].Credits)

	_, err = svc.Register(ctx, RegisterInput{Username: "erin", Password: "password123", ReferralCode: "NOPE0000"})
	assert.ErrorIs(t, err, domain.ErrInvalidReferral)
	_, err = users.GetByUsername(ctx, "erin")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
