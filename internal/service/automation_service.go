package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
)

// AutomationService answers natural-language automation queries
type AutomationService struct {
	router     Router
	classifier llm.Classifier
	usage      UsageLimiter
	logs       *LogService
	events     EventRecorder
	logger     *slog.Logger
}

// NewAutomationService creates an automation service
func NewAutomationService(router Router, usage UsageLimiter, logs *LogService, events EventRecorder, logger *slog.Logger) *AutomationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutomationService{
		router:     router,
		classifier: llm.KeywordClassifier{},
		usage:      usage,
		logs:       logs,
		events:     events,
		logger:     logger,
	}
}

// NLPInput is the query payload
type NLPInput struct {
	Query string `json:"query" validate:"required,max=2000"`
}

// NLPResult is the routed answer plus remaining allowance
type NLPResult struct {
	*llm.Response
	Usage domain.Usage `json:"usage"`
}

// Query consumes one automation unit and routes the query. When every
// provider fails the answer is an echo with provider "none".
func (s *AutomationService) Query(ctx context.Context, caller Caller, in NLPInput) (*NLPResult, error) {
	in.Query = strings.TrimSpace(in.Query)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	ok, usage, err := s.usage.IncrementUsage(ctx, caller.UserID, caller.Tier, domain.FeatureAutomation)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.ObserveUsageDenied(domain.FeatureAutomation, string(caller.Tier))
		return nil, domain.ErrUsageLimit
	}

	level := domain.LevelInfo
	resp, err := s.router.Route(ctx, caller.Tier, llm.Request{
		System: "You translate business automation requests into clear, actionable steps.",
		Prompt: in.Query,
	})
	if err != nil {
		s.logger.Warn("automation query fell back to echo",
			slog.String("user_id", caller.UserID),
			slog.String("error", err.Error()),
		)
		level = domain.LevelWarn
		resp = &llm.Response{
			Content:    "Processed: " + in.Query,
			Provider:   llm.ProviderNone,
			Complexity: s.classifier.Classify(in.Query),
		}
	}

	s.logs.writeQuietly(ctx, &domain.LogEntry{
		Owner:   caller.Username,
		Level:   level,
		Message: fmt.Sprintf("NLP query answered by %s: %s", resp.Provider, truncate(in.Query, 120)),
	})
	if s.events != nil {
		s.events.Track(ctx, domain.EventNLPQuery, caller.UserID, map[string]string{"provider": string(resp.Provider)})
	}
	return &NLPResult{Response: resp, Usage: usage}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
