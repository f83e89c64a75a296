package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
	"github.com/omnicore/omniaudit/internal/service"
)

const (
	pingInterval   = 15 * time.Second
	writeWait      = 5 * time.Second
	subscriberBuf  = 64
	maxInboundSize = 512
)

// LogsHandler serves task and automation logs over REST and streams new
// entries over WebSocket. It is the LogService publisher.
type LogsHandler struct {
	logs           *service.LogService
	logger         *slog.Logger
	allowedOrigins []string

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	owner string
	admin bool
	ch    chan *domain.LogEntry
}

// NewLogsHandler creates a new logs handler. Call SetLogService before serving REST requests.
func NewLogsHandler(logger *slog.Logger, allowedOrigins []string) *LogsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogsHandler{
		logger:         logger,
		allowedOrigins: allowedOrigins,
		subs:           make(map[*subscriber]struct{}),
	}
}

// SetLogService wires the service that owns persistence. The service in turn
// publishes through this handler, so the two are built in that order.
func (h *LogsHandler) SetLogService(logs *service.LogService) {
	h.logs = logs
}

// Publish fans an entry out to subscribers of its owner and to admins.
// Slow subscribers drop entries rather than block the writer.
func (h *LogsHandler) Publish(entry *domain.LogEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if !s.admin && s.owner != entry.Owner {
			continue
		}
		select {
		case s.ch <- entry:
		default:
			h.logger.Warn("log subscriber lagging, entry dropped", slog.String("owner", s.owner))
		}
	}
}

func (h *LogsHandler) subscribe(owner string, admin bool) *subscriber {
	s := &subscriber{owner: owner, admin: admin, ch: make(chan *domain.LogEntry, subscriberBuf)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	metrics.IncrementWebsocketClients()
	return s
}

func (h *LogsHandler) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	metrics.DecrementWebsocketClients()
}

// Subscribers returns the number of open streams
func (h *LogsHandler) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *LogsHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients
				return true
			}
			if slices.Contains(h.allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// List handles GET /api/logs?limit=
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	entries, err := h.logs.List(r.Context(), caller.Username, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Stream handles GET /ws/logs. Each new entry for the caller is written as one JSON text frame.
func (h *LogsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	sub := h.subscribe(caller.Username, caller.IsAdmin())
	defer h.unsubscribe(sub)

	// reader goroutine only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(maxInboundSize)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-sub.ch:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(entry); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket closed", slog.String("owner", caller.Username))
				}
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
