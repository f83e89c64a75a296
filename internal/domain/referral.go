package domain

import (
	"context"
	"time"
)

// ReferralCode is a shareable code owned by one user
type ReferralCode struct {
	Code      string    `json:"code"`
	UserID    string    `json:"userId"`
	Uses      int       `json:"uses"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reward is credit granted to a referrer when their code is redeemed
type Reward struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	ReferredUserID string    `json:"referredUserId"`
	Code           string    `json:"code"`
	Credits        int       `json:"credits"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReferralStats summarizes the referral program
type ReferralStats struct {
	Codes        int `json:"codes"`
	Redemptions  int `json:"redemptions"`
	CreditsGiven int `json:"creditsGiven"`
}

// ReferralRepository defines data access for referral codes and rewards
type ReferralRepository interface {
	CreateCode(ctx context.Context, code *ReferralCode) error
	GetCodeByUser(ctx context.Context, userID string) (*ReferralCode, error)
	GetCode(ctx context.Context, code string) (*ReferralCode, error)
	// Redeem increments the code's use count and records the reward atomically.
	Redeem(ctx context.Context, code string, referredUserID string, credits int) (*Reward, error)
	ListRewards(ctx context.Context, userID string) ([]*Reward, error)
	Stats(ctx context.Context) (*ReferralStats, error)
}
