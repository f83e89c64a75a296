// Package compliance records sensitive actions: a structured log line, a
// row in compliance_events and, when configured, a Kafka message.
package compliance

import (
	"context"
	"log/slog"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/infrastructure/logger"
)

// Outcome values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// Publisher ships events to an external stream
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Logger fans a compliance event out to every configured sink.
// Sink failures are logged and never returned.
type Logger struct {
	logger    *slog.Logger
	repo      domain.ComplianceRepository
	publisher Publisher
	timeout   time.Duration
}

// NewLogger creates a compliance logger. repo and publisher may be nil.
func NewLogger(log *slog.Logger, repo domain.ComplianceRepository, publisher Publisher) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{
		logger:    log.With(slog.String("component", "compliance")),
		repo:      repo,
		publisher: publisher,
		timeout:   3 * time.Second,
	}
}

// LogAction records one action
func (l *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	event := &domain.ComplianceEvent{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Status:     status,
		Details:    details,
		RequestID:  logger.RequestID(ctx),
		CreatedAt:  time.Now().UTC(),
	}

	l.logger.Info("compliance",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", event.RequestID),
	)

	// the request may be finishing; sinks get their own deadline
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if l.repo != nil {
		if err := l.repo.Record(sinkCtx, event); err != nil {
			l.logger.Error("failed to persist compliance event",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
	}
	if l.publisher != nil {
		key := userID
		if key == "" {
			key = resource
		}
		if err := l.publisher.Publish(sinkCtx, key, event); err != nil {
			l.logger.Error("failed to publish compliance event",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
	}
}

// LogAuth records a login or registration outcome
func (l *Logger) LogAuth(ctx context.Context, userID, action, status, details string) {
	l.LogAction(ctx, userID, action, "auth", userID, status, details)
}

// LogDenied records a rejected request
func (l *Logger) LogDenied(ctx context.Context, userID, resource, reason string) {
	l.LogAction(ctx, userID, "access_denied", resource, "", StatusDenied, reason)
}

// Recent lists the latest persisted events
func (l *Logger) Recent(ctx context.Context, limit int) ([]*domain.ComplianceEvent, error) {
	if l.repo == nil {
		return []*domain.ComplianceEvent{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return l.repo.ListRecent(ctx, limit)
}
