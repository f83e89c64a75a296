package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
)

const chatContextTurns = 10

// Router answers a prompt using the provider chosen for a tier
type Router interface {
	Route(ctx context.Context, tier domain.Tier, req llm.Request) (*llm.Response, error)
}

// UsageLimiter consumes metered usage
type UsageLimiter interface {
	IncrementUsage(ctx context.Context, userID string, tier domain.Tier, feature string) (bool, domain.Usage, error)
	ReleaseUsage(ctx context.Context, userID, feature string) error
}

// ChatService proxies chat messages to the LLM router
type ChatService struct {
	router  Router
	usage   UsageLimiter
	history domain.ChatHistoryStore
	events  EventRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewChatService creates a chat service
func NewChatService(router Router, usage UsageLimiter, history domain.ChatHistoryStore, events EventRecorder, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{router: router, usage: usage, history: history, events: events, logger: logger, now: time.Now}
}

// ChatInput is the chat payload
type ChatInput struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// ChatReply is the assistant's answer plus routing metadata
type ChatReply struct {
	*llm.Response
	Usage domain.Usage `json:"usage"`
}

// Send consumes one chat unit, routes the message and appends both turns to history.
// An exhausted allowance yields domain.ErrUsageLimit. The unit is refunded when
// no provider answers.
func (s *ChatService) Send(ctx context.Context, caller Caller, in ChatInput) (*ChatReply, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	ok, usage, err := s.usage.IncrementUsage(ctx, caller.UserID, caller.Tier, domain.FeatureChat)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.ObserveUsageDenied(domain.FeatureChat, string(caller.Tier))
		return nil, domain.ErrUsageLimit
	}

	prior, err := s.history.List(ctx, caller.UserID)
	if err != nil {
		s.logger.Warn("chat history unavailable", slog.String("user_id", caller.UserID), slog.String("error", err.Error()))
		prior = nil
	}
	if len(prior) > chatContextTurns {
		prior = prior[len(prior)-chatContextTurns:]
	}
	turns := make([]llm.Message, 0, len(prior))
	for _, m := range prior {
		turns = append(turns, llm.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := s.router.Route(ctx, caller.Tier, llm.Request{
		System:  "You are OmniBot, a helpful assistant for small-business owners.",
		Prompt:  in.Message,
		History: turns,
	})
	if err != nil {
		if relErr := s.usage.ReleaseUsage(ctx, caller.UserID, domain.FeatureChat); relErr != nil {
			s.logger.Error("chat usage refund failed",
				slog.String("user_id", caller.UserID),
				slog.String("error", relErr.Error()),
			)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	now := s.now()
	err = s.history.Append(ctx, caller.UserID,
		domain.ChatMessage{Role: "user", Content: in.Message, CreatedAt: now},
		domain.ChatMessage{Role: "assistant", Content: resp.Content, Provider: string(resp.Provider), Model: resp.Model, CreatedAt: now},
	)
	if err != nil {
		s.logger.Error("failed to store chat history", slog.String("user_id", caller.UserID), slog.String("error", err.Error()))
	}

	if s.events != nil {
		s.events.Track(ctx, domain.EventChatMessage, caller.UserID, map[string]string{
			"provider": string(resp.Provider),
			"model":    resp.Model,
		})
	}
	return &ChatReply{Response: resp, Usage: usage}, nil
}

// History returns the caller's stored messages, oldest first
func (s *ChatService) History(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	return s.history.List(ctx, userID)
}

// ClearHistory removes the caller's messages
func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	return s.history.Clear(ctx, userID)
}
