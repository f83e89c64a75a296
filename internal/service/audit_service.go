package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/featureflags"
	"github.com/omnicore/omniaudit/internal/llm"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
	"github.com/omnicore/omniaudit/internal/observability/tracing"
)

// Generator produces free text from a fixed provider configuration
type Generator interface {
	Generate(ctx context.Context, cfg llm.ProviderConfig, req llm.Request) (*llm.Response, error)
}

// EventRecorder records analytics events on a best-effort basis
type EventRecorder interface {
	Track(ctx context.Context, eventType, userID string, metadata map[string]string)
}

// AuditService validates, scores and stores audits
type AuditService struct {
	repo      domain.AuditRepository
	generator Generator
	events    EventRecorder
	logger    *slog.Logger
}

// NewAuditService creates an audit service
func NewAuditService(repo domain.AuditRepository, generator Generator, events EventRecorder, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{
		repo:      repo,
		generator: generator,
		events:    events,
		logger:    logger.With(slog.String("component", "audit_service")),
	}
}

// Submit validates the form, derives results, adds the AI paragraph and stores the audit.
// A validation failure returns *ValidationError and stores nothing.
func (s *AuditService) Submit(ctx context.Context, form domain.AuditForm, userID string) (*domain.Audit, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.submit")
	defer span.End()

	form.BusinessName = strings.TrimSpace(form.BusinessName)
	form.Industry = strings.TrimSpace(form.Industry)
	if err := validateStruct(form); err != nil {
		return nil, err
	}

	results := GenerateResults(form)
	aiSource := "fallback"
	results.AIRecommendation = FallbackRecommendation(form.Industry)
	if featureflags.Enabled(featureflags.AIRecommendations) {
		if text, err := s.aiParagraph(ctx, form, results); err != nil {
			s.logger.Warn("ai recommendation failed, using fallback",
				slog.String("industry", form.Industry),
				slog.String("error", err.Error()),
			)
		} else {
			results.AIRecommendation = text
			aiSource = "llm"
		}
	}

	audit := &domain.Audit{
		BusinessName: form.BusinessName,
		Industry:     form.Industry,
		Form:         form,
		AuditResults: results,
	}
	if err := s.repo.Create(ctx, audit); err != nil {
		return nil, fmt.Errorf("store audit: %w", err)
	}
	metrics.ObserveAudit(aiSource)

	if s.events != nil {
		s.events.Track(ctx, domain.EventAuditSubmitted, userID, map[string]string{
			"audit_id": fmt.Sprint(audit.ID),
			"industry": audit.Industry,
		})
	}

	s.logger.Info("audit stored",
		slog.Int64("audit_id", audit.ID),
		slog.String("industry", audit.Industry),
		slog.String("ai_source", aiSource),
	)
	return audit, nil
}

// Get returns one audit or domain.ErrNotFound
func (s *AuditService) Get(ctx context.Context, id int64) (*domain.Audit, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every audit, newest first
func (s *AuditService) List(ctx context.Context) ([]*domain.Audit, error) {
	return s.repo.List(ctx)
}

func (s *AuditService) aiParagraph(ctx context.Context, form domain.AuditForm, results domain.AuditResults) (string, error) {
	if s.generator == nil {
		return "", llm.ErrProviderUnavailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s (%s industry), operating %s with %s employees.\n",
		form.BusinessName, form.Industry, form.BusinessAge, form.EmployeeCount)
	if form.PrimaryChallenge != "" {
		fmt.Fprintf(&b, "Primary challenge: %s\n", form.PrimaryChallenge)
	}
	if len(form.Goals) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", strings.Join(form.Goals, "; "))
	}
	fmt.Fprintf(&b, "Opportunities found: %s\n", strings.Join(results.Opportunities, "; "))
	b.WriteString("Write one short paragraph of practical, specific advice for this owner.")

	resp, err := s.generator.Generate(ctx, llm.GPT4oMini, llm.Request{
		System:    "You are a small-business operations consultant. Be concrete and encouraging.",
		Prompt:    b.String(),
		MaxTokens: 300,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("empty ai recommendation")
	}
	return text, nil
}
