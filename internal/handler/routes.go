package handler

import (
	"net/http"
	"strings"

	"github.com/omnicore/omniaudit/internal/compliance"
	"github.com/omnicore/omniaudit/internal/security"
	"github.com/omnicore/omniaudit/internal/security/middleware"
)

// Routes groups every handler the API serves
type Routes struct {
	Health     *HealthHandler
	Auth       *AuthHandler
	Audits     *AuditHandler
	Catalog    *CatalogHandler
	Chat       *ChatHandler
	Tasks      *TaskHandler
	Logs       *LogsHandler
	Engagement *EngagementHandler
	Admin      *AdminHandler
	Demo       *DemoHandler
	Metrics    http.Handler

	Authz      *security.Authorizer
	Compliance *compliance.Logger
}

// Register adds every route to mux. Authenticated routes are additionally
// gated by the caller's role permissions.
func (rt *Routes) Register(mux *http.ServeMux) {
	guard := func(perm security.Permission, h http.HandlerFunc) http.Handler {
		return middleware.RequirePermission(rt.Authz, perm, rt.Compliance)(h)
	}

	mux.HandleFunc("GET /healthz", rt.Health.Health)
	mux.HandleFunc("GET /readyz", rt.Health.Ready)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	mux.HandleFunc("POST /api/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", rt.Auth.Login)
	mux.HandleFunc("GET /api/auth/me", rt.Auth.Me)

	mux.HandleFunc("POST /api/audits", rt.Audits.Create)
	mux.HandleFunc("GET /api/audits", rt.Audits.List)
	mux.HandleFunc("GET /api/audits/{id}", rt.Audits.Get)

	mux.HandleFunc("GET /api/templates", rt.Catalog.Templates)
	mux.HandleFunc("GET /api/templates/{id}", rt.Catalog.Template)
	mux.HandleFunc("GET /api/templates/industry/{industry}", rt.Catalog.ByIndustry)
	mux.HandleFunc("GET /api/industries", rt.Catalog.Industries)
	mux.HandleFunc("GET /api/tooltips", rt.Catalog.Tooltips)
	mux.HandleFunc("GET /api/tooltips/{field}", rt.Catalog.Tooltip)

	mux.Handle("POST /api/chat", guard(security.PermUseChat, rt.Chat.Send))
	mux.Handle("GET /api/history", guard(security.PermUseChat, rt.Chat.History))
	mux.Handle("DELETE /api/history", guard(security.PermUseChat, rt.Chat.ClearHistory))
	mux.HandleFunc("GET /api/usage", rt.Chat.Usage)

	mux.Handle("GET /api/tasks", guard(security.PermManageTasks, rt.Tasks.List))
	mux.Handle("POST /api/tasks", guard(security.PermManageTasks, rt.Tasks.Create))
	mux.Handle("POST /api/automation/nlp-query", guard(security.PermUseAutomation, rt.Tasks.Query))
	mux.Handle("GET /api/logs", guard(security.PermReadLogs, rt.Logs.List))
	mux.Handle("GET /ws/logs", guard(security.PermReadLogs, rt.Logs.Stream))

	mux.Handle("POST /api/referrals/code", guard(security.PermManageReferrals, rt.Engagement.ReferralCode))
	mux.Handle("GET /api/referrals", guard(security.PermManageReferrals, rt.Engagement.Referrals))
	mux.HandleFunc("POST /api/analytics/events", rt.Engagement.RecordEvent)

	mux.Handle("GET /api/admin/dashboard", guard(security.PermViewDashboard, rt.Admin.Dashboard))
	mux.Handle("GET /api/admin/compliance", guard(security.PermViewCompliance, rt.Admin.Compliance))
	mux.Handle("POST /api/notion/sync/{id}", guard(security.PermSyncNotion, rt.Admin.NotionSync))

	mux.HandleFunc("GET /api/demo/community", rt.Demo.Community)
	mux.HandleFunc("GET /api/demo/metrics", rt.Demo.Metrics)
	mux.HandleFunc("POST /api/demo/roi", rt.Demo.ROI)
}

// IsPublic reports whether a request may proceed without a token
func IsPublic(r *http.Request) bool {
	p := r.URL.Path
	switch p {
	case "/healthz", "/readyz", "/metrics", "/api/auth/register", "/api/auth/login", "/api/industries":
		return true
	case "/api/analytics/events":
		return r.Method == http.MethodPost
	case "/api/audits":
		return r.Method == http.MethodPost || r.Method == http.MethodGet
	}
	if strings.HasPrefix(p, "/api/audits/") {
		return r.Method == http.MethodGet
	}
	return strings.HasPrefix(p, "/api/templates") ||
		strings.HasPrefix(p, "/api/tooltips") ||
		strings.HasPrefix(p, "/api/demo/")
}

// IsProbe reports whether a request is an infrastructure probe exempt from rate limiting
func IsProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}
