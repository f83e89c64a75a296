package featureflags

import (
	"context"
	"fmt"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
)

var tierLimits = map[domain.Tier]map[string]int{
	domain.TierProBono:      {domain.FeatureChat: 10, domain.FeatureAutomation: 5},
	domain.TierStarter:      {domain.FeatureChat: 100, domain.FeatureAutomation: 50},
	domain.TierProfessional: {domain.FeatureChat: 1000, domain.FeatureAutomation: 500},
	domain.TierEnterprise:   {domain.FeatureChat: domain.Unlimited, domain.FeatureAutomation: domain.Unlimited},
}

// Features lists the metered features in display order
func Features() []string {
	return []string{domain.FeatureChat, domain.FeatureAutomation}
}

// Limit returns the monthly allowance. Unknown tiers get pro_bono limits.
func Limit(tier domain.Tier, feature string) int {
	limits, ok := tierLimits[tier]
	if !ok {
		limits = tierLimits[domain.TierProBono]
	}
	return limits[feature]
}

// UsageManager enforces tier limits on top of a counter store
type UsageManager struct {
	store domain.UsageStore
	now   func() time.Time
}

// NewUsageManager creates a usage manager
func NewUsageManager(store domain.UsageStore) *UsageManager {
	return &UsageManager{store: store, now: time.Now}
}

// IncrementUsage consumes one unit. It returns false without incrementing
// once the counter reached the tier limit.
func (m *UsageManager) IncrementUsage(ctx context.Context, userID string, tier domain.Tier, feature string) (bool, domain.Usage, error) {
	now := m.now()
	limit := Limit(tier, feature)

	ok, used, err := m.store.Increment(ctx, userID, feature, limit, now)
	if err != nil {
		return false, domain.Usage{}, fmt.Errorf("increment %s usage: %w", feature, err)
	}
	return ok, newUsage(feature, limit, used, now), nil
}

// ReleaseUsage refunds one unit for a call that produced nothing for the user.
func (m *UsageManager) ReleaseUsage(ctx context.Context, userID, feature string) error {
	if err := m.store.Release(ctx, userID, feature, m.now()); err != nil {
		return fmt.Errorf("release %s usage: %w", feature, err)
	}
	return nil
}

// Usage reports every metered feature for the user in the current period
func (m *UsageManager) Usage(ctx context.Context, userID string, tier domain.Tier) ([]domain.Usage, error) {
	now := m.now()
	out := make([]domain.Usage, 0, len(Features()))
	for _, feature := range Features() {
		used, err := m.store.Get(ctx, userID, feature, now)
		if err != nil {
			return nil, fmt.Errorf("read %s usage: %w", feature, err)
		}
		out = append(out, newUsage(feature, Limit(tier, feature), used, now))
	}
	return out, nil
}

func newUsage(feature string, limit, used int, at time.Time) domain.Usage {
	remaining := domain.Unlimited
	if limit != domain.Unlimited {
		remaining = limit - used
		if remaining < 0 {
			remaining = 0
		}
	}
	return domain.Usage{
		Feature:   feature,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		Period:    at.UTC().Format("2006-01"),
	}
}
