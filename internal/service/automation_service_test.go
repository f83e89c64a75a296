package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
)

func TestNLPQuery_Routed(t *testing.T) {
	logRepo := &memLogRepo{}
	events := &recordingEvents{}
	svc := NewAutomationService(&fakeRouter{reply: "Step 1: ..."}, newFakeLimiter(5), NewLogService(logRepo, nil, nil), events, nil)

	res, err := svc.Query(context.Background(), testCaller, NLPInput{Query: "Send invoices every Friday"})
	require.NoError(t, err)
	assert.Equal(t, "Step 1: ...", res.Content)
	assert.Equal(t, llm.ProviderOpenAI, res.Provider)
	assert.Equal(t, 1, res.Usage.Used)

	entries := logRepo.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Owner)
	assert.Equal(t, domain.LevelInfo, entries[0].Level)
	assert.Equal(t, []string{domain.EventNLPQuery}, events.seen())
}

func TestNLPQuery_FallsBackToEcho(t *testing.T) {
	logRepo := &memLogRepo{}
	svc := NewAutomationService(&fakeRouter{err: llm.ErrProviderUnavailable}, newFakeLimiter(5), NewLogService(logRepo, nil, nil), nil, nil)

	res, err := svc.Query(context.Background(), testCaller, NLPInput{Query: "Analyze my churn"})
	require.NoError(t, err)
	assert.Equal(t, "Processed: Analyze my churn", res.Content)
	assert.Equal(t, llm.ProviderNone, res.Provider)
	assert.Equal(t, llm.Complex, res.Complexity)
	assert.Equal(t, domain.LevelWarn, logRepo.all()[0].Level)
}

func TestNLPQuery_UsageExhausted(t *testing.T) {
	router := &fakeRouter{reply: "ok"}
	svc := NewAutomationService(router, newFakeLimiter(0), NewLogService(&memLogRepo{}, nil, nil), nil, nil)

	_, err := svc.Query(context.Background(), testCaller, NLPInput{Query: "hello"})
	assert.ErrorIs(t, err, domain.ErrUsageLimit)
	assert.Empty(t, router.requests)
}

func TestNLPQuery_LimiterError(t *testing.T) {
	limiter := newFakeLimiter(5)
	limiter.err = errBoom
	svc := NewAutomationService(&fakeRouter{}, limiter, NewLogService(&memLogRepo{}, nil, nil), nil, nil)

	_, err := svc.Query(context.Background(), testCaller, NLPInput{Query: "hello"})
	assert.ErrorIs(t, err, errBoom)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
