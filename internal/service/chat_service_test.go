package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
)

var testCaller = Caller{UserID: "u1", Username: "alice", Role: domain.RoleUser, Tier: domain.TierStarter}

func TestChatSend_StoresBothTurns(t *testing.T) {
	router := &fakeRouter{reply: "Hello there"}
	history := newMemChatHistory()
	events := &recordingEvents{}
	svc := NewChatService(router, newFakeLimiter(10), history, events, nil)

	reply, err := svc.Send(context.Background(), testCaller, ChatInput{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply.Content)
	assert.Equal(t, llm.ProviderOpenAI, reply.Provider)
	assert.Equal(t, 1, reply.Usage.Used)
	assert.Equal(t, 9, reply.Usage.Remaining)

	msgs, err := svc.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "gpt-4o-mini", msgs[1].Model)
	assert.Equal(t, []string{domain.EventChatMessage}, events.seen())
}

func TestChatSend_SendsRecentHistoryAsContext(t *testing.T) {
	router := &fakeRouter{reply: "ok"}
	history := newMemChatHistory()
	for i := 0; i < 30; i++ {
		require.NoError(t, history.Append(context.Background(), "u1", domain.ChatMessage{Role: "user", Content: fmt.Sprint(i)}))
	}
	svc := NewChatService(router, newFakeLimiter(10), history, nil, nil)

	_, err := svc.Send(context.Background(), testCaller, ChatInput{Message: "next"})
	require.NoError(t, err)
	require.Len(t, router.requests, 1)
	turns := router.requests[0].History
	require.Len(t, turns, chatContextTurns)
	assert.Equal(t, "29", turns[len(turns)-1].Content)
}

func TestChatSend_UsageExhausted(t *testing.T) {
	router := &fakeRouter{reply: "ok"}
	svc := NewChatService(router, newFakeLimiter(2), newMemChatHistory(), nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Send(ctx, testCaller, ChatInput{Message: "hi"})
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, testCaller, ChatInput{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrUsageLimit)
	assert.Len(t, router.requests, 2)
}

func TestChatSend_RouterFailure(t *testing.T) {
	history := newMemChatHistory()
	limiter := newFakeLimiter(10)
	svc := NewChatService(&fakeRouter{err: errBoom}, limiter, history, nil, nil)

	_, err := svc.Send(context.Background(), testCaller, ChatInput{Message: "hi"})
	assert.ErrorIs(t, err, errBoom)

	msgs, _ := history.List(context.Background(), "u1")
	assert.Empty(t, msgs)
	assert.Zero(t, limiter.usedFor("u1", domain.FeatureChat), "failed chat is refunded")
}

func TestChatSend_EmptyMessage(t *testing.T) {
	svc := NewChatService(&fakeRouter{}, newFakeLimiter(10), newMemChatHistory(), nil, nil)
	_, err := svc.Send(context.Background(), testCaller, ChatInput{Message: "   "})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestChatClearHistory(t *testing.T) {
	history := newMemChatHistory()
	svc := NewChatService(&fakeRouter{reply: "ok"}, newFakeLimiter(10), history, nil, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, testCaller, ChatInput{Message: "hi"})
	require.NoError(t, err)
	require.NoError(t, svc.ClearHistory(ctx, "u1"))

	msgs, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
