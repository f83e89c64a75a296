package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/omnicore/omniaudit/internal/domain"
)

// ReferralService manages referral codes and rewards
type ReferralService struct {
	repo    domain.ReferralRepository
	credits int
	events  EventRecorder
	logger  *slog.Logger
}

// NewReferralService creates a referral service granting credits per redemption
func NewReferralService(repo domain.ReferralRepository, credits int, events EventRecorder, logger *slog.Logger) *ReferralService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferralService{repo: repo, credits: credits, events: events, logger: logger}
}

// ReferralSummary is what a user sees about their referrals
type ReferralSummary struct {
	Code         string           `json:"code,omitempty"`
	Uses         int              `json:"uses"`
	TotalCredits int              `json:"totalCredits"`
	Rewards      []*domain.Reward `json:"rewards"`
}

// GetOrCreateCode returns the user's code, creating it on first call
func (s *ReferralService) GetOrCreateCode(ctx context.Context, userID string) (*domain.ReferralCode, error) {
	code, err := s.repo.GetCodeByUser(ctx, userID)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		code = &domain.ReferralCode{Code: newReferralCode(), UserID: userID}
		err = s.repo.CreateCode(ctx, code)
		if err == nil {
			s.logger.Info("referral code created", slog.String("user_id", userID), slog.String("code", code.Code))
			return code, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		// either the code collided or a concurrent call created this user's code
		if existing, getErr := s.repo.GetCodeByUser(ctx, userID); getErr == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("create referral code: %w", err)
}

// Validate reports domain.ErrInvalidReferral for an unknown code
func (s *ReferralService) Validate(ctx context.Context, code string) error {
	_, err := s.repo.GetCode(ctx, strings.ToUpper(code))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidReferral
	}
	return err
}

// Redeem grants the code owner a reward for referredUserID
func (s *ReferralService) Redeem(ctx context.Context, code, referredUserID string) (*domain.Reward, error) {
	reward, err := s.repo.Redeem(ctx, strings.ToUpper(code), referredUserID, s.credits)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.Track(ctx, domain.EventReferralRedeemed, reward.UserID, map[string]string{
			"referred_user_id": referredUserID,
		})
	}
	return reward, nil
}

// Summary returns the user's code, use count and rewards
func (s *ReferralService) Summary(ctx context.Context, userID string) (*ReferralSummary, error) {
	out := &ReferralSummary{Rewards: []*domain.Reward{}}

	code, err := s.repo.GetCodeByUser(ctx, userID)
	switch {
	case err == nil:
		out.Code = code.Code
		out.Uses = code.Uses
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	rewards, err := s.repo.ListRewards(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Rewards = rewards
	for _, r := range rewards {
		out.TotalCredits += r.Credits
	}
	return out, nil
}

func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}
