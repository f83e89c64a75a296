package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/security/auth"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// ReferralRedeemer grants a referral reward for a new user
type ReferralRedeemer interface {
	Validate(ctx context.Context, code string) error
	Redeem(ctx context.Context, code, referredUserID string) (*domain.Reward, error)
}

// AuthService handles registration and login
type AuthService struct {
	userRepo  domain.UserRepository
	tokens    *auth.TokenManager
	referrals ReferralRedeemer
	events    EventRecorder
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	referrals ReferralRedeemer,
	events EventRecorder,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		referrals: referrals,
		events:    events,
		logger:    logger,
	}
}

// RegisterInput is the registration payload
type RegisterInput struct {
	Username     string `json:"username" validate:"required,min=3,max=50"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ReferralCode string `json:"referralCode,omitempty" validate:"omitempty,max=32"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Role      string      `json:"role"`
	Tier      domain.Tier `json:"tier"`
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	ExpiresIn int         `json:"expiresIn"` // seconds
}

// Register creates a user with role user and tier pro_bono.
// A taken username yields domain.ErrConflict; an unknown referral code yields
// domain.ErrInvalidReferral and creates nothing.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.ReferralCode = strings.TrimSpace(in.ReferralCode)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if in.ReferralCode != "" {
		if s.referrals == nil {
			return nil, domain.ErrInvalidReferral
		}
		if err := s.referrals.Validate(ctx, in.ReferralCode); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Tier:         domain.TierProBono,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if in.ReferralCode != "" {
		if _, err := s.referrals.Redeem(ctx, in.ReferralCode, user.ID); err != nil {
			s.logger.Error("referral redemption failed after registration",
				slog.String("user_id", user.ID),
				slog.String("code", in.ReferralCode),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.events != nil {
		s.events.Track(ctx, domain.EventUserRegistered, user.ID, nil)
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("username", user.Username))

	return s.issue(user)
}

// Login authenticates a user and returns a JWT
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("username", "required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown username", slog.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Profile returns the stored user behind a token
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role, string(user.Tier))
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}
	return &AuthResult{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Tier:      user.Tier,
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(s.tokens.TTL().Seconds()),
	}, nil
}
