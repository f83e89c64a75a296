package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/infrastructure/redis"
)

// RedisChatHistoryStore implements domain.ChatHistoryStore as a capped Redis list
type RedisChatHistoryStore struct {
	redis *redis.Client
	max   int64
}

// NewRedisChatHistoryStore creates a history store capped at domain.MaxChatHistory
func NewRedisChatHistoryStore(client *redis.Client) *RedisChatHistoryStore {
	return &RedisChatHistoryStore{redis: client, max: domain.MaxChatHistory}
}

func chatKey(userID string) string {
	return "chat:history:" + userID
}

// Append adds messages in order, dropping the oldest beyond the cap
func (s *RedisChatHistoryStore) Append(ctx context.Context, userID string, msgs ...domain.ChatMessage) error {
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal chat message: %w", err)
		}
		values = append(values, raw)
	}
	if err := s.redis.AppendCapped(ctx, chatKey(userID), s.max, values...); err != nil {
		return fmt.Errorf("failed to append chat history: %w", err)
	}
	return nil
}

// List returns the history, oldest first
func (s *RedisChatHistoryStore) List(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	raw, err := s.redis.Range(ctx, chatKey(userID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	msgs := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to decode chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear deletes the user's history
func (s *RedisChatHistoryStore) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Delete(ctx, chatKey(userID)); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
