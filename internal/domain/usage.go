package domain

import (
	"context"
	"time"
)

// Tier is a usage-limit bucket
type Tier string

const (
	TierProBono      Tier = "pro_bono"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	switch t {
	case TierProBono, TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// Metered features
const (
	FeatureChat       = "chat"
	FeatureAutomation = "automation"
)

// Unlimited marks a feature without a cap
const Unlimited = -1

// Usage reports consumption of one feature in the current period
type Usage struct {
	Feature   string `json:"feature"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Period    string `json:"period"`
}

// UsageStore keeps per-user, per-feature counters for a period
type UsageStore interface {
	// Increment adds one use unless the counter already reached limit.
	// A negative limit means unlimited.
	Increment(ctx context.Context, userID, feature string, limit int, at time.Time) (bool, int, error)
	Get(ctx context.Context, userID, feature string, at time.Time) (int, error)
	// Release gives back one use; the counter never drops below zero.
	Release(ctx context.Context, userID, feature string, at time.Time) error
}
