package domain

import (
	"context"
	"time"
)

// MaxChatHistory caps the stored messages per user
const MaxChatHistory = 100

// ChatMessage is one turn in a user's chat history
type ChatMessage struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatHistoryStore keeps a bounded per-user history
type ChatHistoryStore interface {
	Append(ctx context.Context, userID string, msgs ...ChatMessage) error
	List(ctx context.Context, userID string) ([]ChatMessage, error)
	Clear(ctx context.Context, userID string) error
}
