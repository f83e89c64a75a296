package domain

import (
	"context"
	"time"
)

// Analytics event types emitted by the server
const (
	EventAuditSubmitted   = "audit_submitted"
	EventUserRegistered   = "user_registered"
	EventChatMessage      = "chat_message"
	EventTaskCreated      = "task_created"
	EventNLPQuery         = "nlp_query"
	EventReferralRedeemed = "referral_redeemed"
)

// AnalyticsEvent is one tracked occurrence
type AnalyticsEvent struct {
	ID        int64             `json:"id"`
	EventType string            `json:"eventType"`
	UserID    string            `json:"userId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// AnalyticsRepository defines data access for analytics events
type AnalyticsRepository interface {
	Record(ctx context.Context, event *AnalyticsEvent) error
	CountByType(ctx context.Context, since time.Time) (map[string]int, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int, error)
}

// ComplianceEvent is a persisted record of a sensitive action
type ComplianceEvent struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	Status     string    `json:"status"`
	Details    string    `json:"details,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ComplianceRepository defines data access for compliance events
type ComplianceRepository interface {
	Record(ctx context.Context, event *ComplianceEvent) error
	ListRecent(ctx context.Context, limit int) ([]*ComplianceEvent, error)
}
