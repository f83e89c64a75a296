package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
)

type memUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	byName map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byName: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[u.Username]; taken {
		return domain.ErrConflict
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.byName[u.Username] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byName[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

type memAuditRepo struct {
	mu     sync.Mutex
	audits []*domain.Audit
	err    error
}

func (m *memAuditRepo) Create(_ context.Context, a *domain.Audit) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.audits) + 1)
	a.CreatedAt = time.Now()
	m.audits = append(m.audits, a)
	return nil
}

func (m *memAuditRepo) GetByID(_ context.Context, id int64) (*domain.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.audits {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAuditRepo) List(context.Context) ([]*domain.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Audit, len(m.audits))
	for i, a := range m.audits {
		out[len(m.audits)-1-i] = a
	}
	return out, nil
}

func (m *memAuditRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits), nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	runs  map[string]time.Time
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[string]*domain.Task{}, runs: map[string]time.Time{}}
}

func (m *memTaskRepo) Create(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	m.tasks[t.ID] = t
	return nil
}

func (m *memTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memTaskRepo) filter(keep func(*domain.Task) bool) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Task{}
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *memTaskRepo) ListByOwner(_ context.Context, owner string) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool { return t.Owner == owner }), nil
}

func (m *memTaskRepo) ListAll(context.Context) ([]*domain.Task, error) {
	return m.filter(func(*domain.Task) bool { return true }), nil
}

func (m *memTaskRepo) ListScheduled(context.Context) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool { return t.Schedule != "" && t.Status == domain.TaskActive }), nil
}

func (m *memTaskRepo) MarkRun(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.LastRunAt = &at
	m.runs[id] = at
	return nil
}

func (m *memTaskRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks), nil
}

type memLogRepo struct {
	mu      sync.Mutex
	entries []*domain.LogEntry
	limit   int
}

func (m *memLogRepo) Append(_ context.Context, e *domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLogRepo) ListByOwner(_ context.Context, owner string, limit int) ([]*domain.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	out := []*domain.LogEntry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].Owner == owner {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memLogRepo) CountByLevelSince(_ context.Context, level string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Level == level && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memLogRepo) all() []*domain.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.LogEntry(nil), m.entries...)
}

type memAnalyticsRepo struct {
	mu     sync.Mutex
	events []*domain.AnalyticsEvent
	err    error
}

func (m *memAnalyticsRepo) Record(_ context.Context, e *domain.AnalyticsEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.events) + 1)
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *memAnalyticsRepo) CountByType(_ context.Context, since time.Time) (map[string]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, e := range m.events {
		if !e.CreatedAt.Before(since) {
			out[e.EventType]++
		}
	}
	return out, nil
}

func (m *memAnalyticsRepo) CountActiveUsers(_ context.Context, since time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, e := range m.events {
		if e.UserID != "" && !e.CreatedAt.Before(since) {
			seen[e.UserID] = true
		}
	}
	return len(seen), nil
}

func (m *memAnalyticsRepo) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

type memReferralRepo struct {
	mu      sync.Mutex
	codes   map[string]*domain.ReferralCode
	rewards []*domain.Reward
}

func newMemReferralRepo() *memReferralRepo {
	return &memReferralRepo{codes: map[string]*domain.ReferralCode{}}
}

func (m *memReferralRepo) CreateCode(_ context.Context, c *domain.ReferralCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.codes {
		if existing.UserID == c.UserID {
			return domain.ErrConflict
		}
	}
	if _, ok := m.codes[c.Code]; ok {
		return domain.ErrConflict
	}
	c.CreatedAt = time.Now()
	m.codes[c.Code] = c
	return nil
}

func (m *memReferralRepo) GetCodeByUser(_ context.Context, userID string) (*domain.ReferralCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memReferralRepo) GetCode(_ context.Context, code string) (*domain.ReferralCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[code]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memReferralRepo) Redeem(_ context.Context, code, referredUserID string, credits int) (*domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrInvalidReferral
	}
	c.Uses++
	r := &domain.Reward{
		ID:             int64(len(m.rewards) + 1),
		UserID:         c.UserID,
		ReferredUserID: referredUserID,
		Code:           code,
		Credits:        credits,
		Status:         "granted",
		CreatedAt:      time.Now(),
	}
	m.rewards = append(m.rewards, r)
	return r, nil
}

func (m *memReferralRepo) ListRewards(_ context.Context, userID string) ([]*domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Reward{}
	for _, r := range m.rewards {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReferralRepo) Stats(context.Context) (*domain.ReferralStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.ReferralStats{Codes: len(m.codes), Redemptions: len(m.rewards)}
	for _, r := range m.rewards {
		s.CreditsGiven += r.Credits
	}
	return s, nil
}

type memChatHistory struct {
	mu   sync.Mutex
	msgs map[string][]domain.ChatMessage
	err  error
}

func newMemChatHistory() *memChatHistory {
	return &memChatHistory{msgs: map[string][]domain.ChatMessage{}}
}

func (m *memChatHistory) Append(_ context.Context, userID string, msgs ...domain.ChatMessage) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(m.msgs[userID], msgs...)
	if len(all) > domain.MaxChatHistory {
		all = all[len(all)-domain.MaxChatHistory:]
	}
	m.msgs[userID] = all
	return nil
}

func (m *memChatHistory) List(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatMessage(nil), m.msgs[userID]...), nil
}

func (m *memChatHistory) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.msgs, userID)
	return nil
}

// fakeLimiter allows up to limit calls per user+feature
type fakeLimiter struct {
	mu    sync.Mutex
	limit int
	used  map[string]int
	err   error
}

func newFakeLimiter(limit int) *fakeLimiter {
	return &fakeLimiter{limit: limit, used: map[string]int{}}
}

func (f *fakeLimiter) IncrementUsage(_ context.Context, userID string, _ domain.Tier, feature string) (bool, domain.Usage, error) {
	if f.err != nil {
		return false, domain.Usage{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + ":" + feature
	if f.used[key] >= f.limit {
		return false, domain.Usage{Feature: feature, Limit: f.limit, Used: f.used[key]}, nil
	}
	f.used[key]++
	return true, domain.Usage{Feature: feature, Limit: f.limit, Used: f.used[key], Remaining: f.limit - f.used[key]}, nil
}

func (f *fakeLimiter) ReleaseUsage(_ context.Context, userID, feature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key := userID + ":" + feature; f.used[key] > 0 {
		f.used[key]--
	}
	return nil
}

func (f *fakeLimiter) usedFor(userID, feature string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used[userID+":"+feature]
}

// fakeRouter answers every prompt with a fixed reply or error
type fakeRouter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeRouter) Route(_ context.Context, tier domain.Tier, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cfg := llm.TierSelector{}.Select(tier, llm.KeywordClassifier{}.Classify(req.Prompt))
	return &llm.Response{
		Content:    f.reply,
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		Complexity: llm.KeywordClassifier{}.Classify(req.Prompt),
		Confidence: cfg.Confidence,
	}, nil
}

// fakeGenerator counts Generate calls
type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, cfg llm.ProviderConfig, _ llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply, Provider: cfg.Provider, Model: cfg.Model}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingEvents keeps tracked event types and their user ids
type recordingEvents struct {
	mu    sync.Mutex
	types []string
	users []string
}

func (r *recordingEvents) Track(_ context.Context, eventType, userID string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
	r.users = append(r.users, userID)
}

func (r *recordingEvents) seenUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.users...)
}

func (r *recordingEvents) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

var errBoom = errors.New("boom")
