package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/omnicore/omniaudit/internal/domain"
)

// AnalyticsService records usage events
type AnalyticsService struct {
	repo   domain.AnalyticsRepository
	logger *slog.Logger
}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService(repo domain.AnalyticsRepository, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{repo: repo, logger: logger}
}

// EventInput is a client-submitted event
type EventInput struct {
	EventType string            `json:"eventType" validate:"required,max=64"`
	Metadata  map[string]string `json:"metadata,omitempty" validate:"max=20"`
}

// Record validates and stores a client event
func (s *AnalyticsService) Record(ctx context.Context, in EventInput, userID string) (*domain.AnalyticsEvent, error) {
	in.EventType = strings.TrimSpace(in.EventType)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	event := &domain.AnalyticsEvent{EventType: in.EventType, UserID: userID, Metadata: in.Metadata}
	if err := s.repo.Record(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Track stores a server-side event. Failures are logged and swallowed.
func (s *AnalyticsService) Track(ctx context.Context, eventType, userID string, metadata map[string]string) {
	event := &domain.AnalyticsEvent{EventType: eventType, UserID: userID, Metadata: metadata}
	if err := s.repo.Record(ctx, event); err != nil {
		s.logger.Warn("failed to track analytics event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
