package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
	"github.com/omnicore/omniaudit/internal/security/auth"
	"github.com/omnicore/omniaudit/internal/security/middleware"
)

type memAuditRepo struct {
	mu     sync.Mutex
	audits map[int64]*domain.Audit
	nextID int64
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{audits: make(map[int64]*domain.Audit)}
}

func (m *memAuditRepo) Create(_ context.Context, a *domain.Audit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	m.audits[a.ID] = a
	return nil
}

func (m *memAuditRepo) GetByID(_ context.Context, id int64) (*domain.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.audits[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (m *memAuditRepo) List(_ context.Context) ([]*domain.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Audit, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memAuditRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits), nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return domain.ErrConflict
		}
	}
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, cfg llm.ProviderConfig, _ llm.Request) (*llm.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Content: g.reply, Provider: cfg.Provider, Model: cfg.Model}, nil
}

func newTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager("test-secret", "omniaudit-test", time.Hour)
	require.NoError(t, err)
	return tm
}

// asUser attaches claims the way the JWT middleware would
func asUser(r *http.Request, userID, username, role string) *http.Request {
	claims := &auth.Claims{UserID: userID, Username: username, Role: role, Tier: string(domain.TierProBono)}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func validForm() domain.AuditForm {
	return domain.AuditForm{
		BusinessName:   "Acme Bakery",
		Industry:       "restaurant",
		BusinessAge:    "> 10 years",
		EmployeeCount:  "6-20",
		UsesAutomation: "no",
		TracksCAC:      "no",
		HasWebsite:     "yes",
	}
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
