package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/service"
)

type memLogRepo struct {
	mu      sync.Mutex
	entries []*domain.LogEntry
}

func (m *memLogRepo) Append(_ context.Context, e *domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLogRepo) ListByOwner(_ context.Context, owner string, limit int) ([]*domain.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.LogEntry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].Owner == owner {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memLogRepo) CountByLevelSince(context.Context, string, time.Time) (int, error) {
	return 0, nil
}

func newLogsHandler(origins ...string) (*LogsHandler, *service.LogService) {
	h := NewLogsHandler(nil, origins)
	logs := service.NewLogService(&memLogRepo{}, h, nil)
	h.SetLogService(logs)
	return h, logs
}

func TestLogsHandler_List(t *testing.T) {
	h, logs := newLogsHandler()
	ctx := t.Context()
	require.NoError(t, logs.Write(ctx, &domain.LogEntry{Owner: "alice", Message: "one"}))
	require.NoError(t, logs.Write(ctx, &domain.LogEntry{Owner: "bob", Message: "two"}))

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/logs?limit=10", nil), "u1", "alice", "user"))
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]domain.LogEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "one", entries[0].Message)

	rec = httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/logs?limit=x", nil), "u1", "alice", "user"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// streamServer serves the websocket stream as the given user
func streamServer(t *testing.T, h *LogsHandler, username, role string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, asUser(r, "id-"+username, username, role))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestLogsHandler_StreamOwnEntries(t *testing.T) {
	h, logs := newLogsHandler()
	conn := dial(t, streamServer(t, h, "alice", "user"))

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := t.Context()
	require.NoError(t, logs.Write(ctx, &domain.LogEntry{Owner: "bob", Message: "not yours"}))
	require.NoError(t, logs.Write(ctx, &domain.LogEntry{Owner: "alice", Message: "task ran"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.LogEntry
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "task ran", got.Message)
	assert.Equal(t, "alice", got.Owner)
}

func TestLogsHandler_AdminSeesAll(t *testing.T) {
	h, logs := newLogsHandler()
	conn := dial(t, streamServer(t, h, "root", "admin"))
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, logs.Write(t.Context(), &domain.LogEntry{Owner: "bob", Message: "bob's task"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.LogEntry
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "bob", got.Owner)
}

func TestLogsHandler_UnsubscribesOnClose(t *testing.T) {
	h, _ := newLogsHandler()
	conn := dial(t, streamServer(t, h, "alice", "user"))
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLogsHandler_RejectsForeignOrigin(t *testing.T) {
	h, _ := newLogsHandler("http://localhost:5173")
	url := streamServer(t, h, "alice", "user")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogsHandler_PublishDropsWhenFull(t *testing.T) {
	h := NewLogsHandler(nil, nil)
	sub := h.subscribe("alice", false)
	defer h.unsubscribe(sub)

	for range subscriberBuf + 5 {
		h.Publish(&domain.LogEntry{Owner: "alice"})
	}
	assert.Len(t, sub.ch, subscriberBuf)
}
