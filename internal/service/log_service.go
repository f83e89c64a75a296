package service

import (
	"context"
	"log/slog"

	"github.com/omnicore/omniaudit/internal/domain"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// LogPublisher pushes new entries to live subscribers
type LogPublisher interface {
	Publish(entry *domain.LogEntry)
}

// LogService stores task and automation log entries and streams them live
type LogService struct {
	repo      domain.LogRepository
	publisher LogPublisher
	logger    *slog.Logger
}

// NewLogService creates a log service; publisher may be nil
func NewLogService(repo domain.LogRepository, publisher LogPublisher, logger *slog.Logger) *LogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogService{repo: repo, publisher: publisher, logger: logger}
}

// Write persists an entry and publishes it
func (s *LogService) Write(ctx context.Context, entry *domain.LogEntry) error {
	if entry.Level == "" {
		entry.Level = domain.LevelInfo
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.Publish(entry)
	}
	return nil
}

// writeQuietly is Write for side-channel logging where failure must not
// fail the caller
func (s *LogService) writeQuietly(ctx context.Context, entry *domain.LogEntry) {
	if err := s.Write(ctx, entry); err != nil {
		s.logger.Error("failed to write log entry",
			slog.String("owner", entry.Owner),
			slog.String("error", err.Error()),
		)
	}
}

// List returns the owner's recent entries. limit is clamped to [1, 500], default 50.
func (s *LogService) List(ctx context.Context, owner string, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.repo.ListByOwner(ctx, owner, limit)
}
