package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omnicore/omniaudit/internal/domain"
)

// System health values reported on the dashboard
const (
	HealthExcellent = "excellent"
	HealthDegraded  = "degraded"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping implements Pinger
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// DashboardStores groups the repositories the dashboard reads
type DashboardStores struct {
	Audits    domain.AuditRepository
	Users     domain.UserRepository
	Tasks     domain.TaskRepository
	Logs      domain.LogRepository
	Analytics domain.AnalyticsRepository
	Referrals domain.ReferralRepository
}

// Alert is a threshold that has been crossed
type Alert struct {
	Level   string `json:"level"`
	Metric  string `json:"metric"`
	Message string `json:"message"`
	Value   int    `json:"value"`
	Limit   int    `json:"threshold"`
}

// Dashboard is the admin overview
type Dashboard struct {
	TotalAudits   int                   `json:"totalAudits"`
	TotalUsers    int                   `json:"totalUsers"`
	TotalTasks    int                   `json:"totalTasks"`
	EventsByType  map[string]int        `json:"eventsByType"`
	ActiveUsers7d int                   `json:"activeUsers7d"`
	ErrorLogs24h  int                   `json:"errorLogs24h"`
	Referrals     *domain.ReferralStats `json:"referrals"`
	UptimeSeconds int64                 `json:"uptimeSeconds"`
	SystemHealth  string                `json:"systemHealth"`
	Database      string                `json:"database"`
	Cache         string                `json:"cache"`
	Alerts        []Alert               `json:"alerts"`
	GeneratedAt   time.Time             `json:"generatedAt"`
}

// DashboardService aggregates measured values for admins
type DashboardService struct {
	stores         DashboardStores
	db             Pinger
	cache          Pinger
	errorThreshold int
	startedAt      time.Time
	logger         *slog.Logger
	now            func() time.Time
}

// NewDashboardService creates a dashboard service. startedAt is the process start time.
func NewDashboardService(stores DashboardStores, db, cache Pinger, errorThreshold int, startedAt time.Time, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		stores:         stores,
		db:             db,
		cache:          cache,
		errorThreshold: errorThreshold,
		startedAt:      startedAt,
		logger:         logger,
		now:            time.Now,
	}
}

// Build gathers every count concurrently; the first failing query fails the call.
// Store pings never fail it and only lower the health value.
func (s *DashboardService) Build(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	d := &Dashboard{GeneratedAt: now.UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalAudits, err = s.stores.Audits.Count(gctx)
		return wrapCount("audits", err)
	})
	g.Go(func() (err error) {
		d.TotalUsers, err = s.stores.Users.Count(gctx)
		return wrapCount("users", err)
	})
	g.Go(func() (err error) {
		d.TotalTasks, err = s.stores.Tasks.Count(gctx)
		return wrapCount("tasks", err)
	})
	g.Go(func() (err error) {
		d.EventsByType, err = s.stores.Analytics.CountByType(gctx, now.AddDate(0, 0, -30))
		return wrapCount("events", err)
	})
	g.Go(func() (err error) {
		d.ActiveUsers7d, err = s.stores.Analytics.CountActiveUsers(gctx, now.AddDate(0, 0, -7))
		return wrapCount("active users", err)
	})
	g.Go(func() (err error) {
		d.ErrorLogs24h, err = s.stores.Logs.CountByLevelSince(gctx, domain.LevelError, now.Add(-24*time.Hour))
		return wrapCount("error logs", err)
	})
	g.Go(func() (err error) {
		d.Referrals, err = s.stores.Referrals.Stats(gctx)
		return wrapCount("referrals", err)
	})
	g.Go(func() error {
		d.Database = s.probe(gctx, "database", s.db)
		return nil
	})
	g.Go(func() error {
		d.Cache = s.probe(gctx, "cache", s.cache)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.EventsByType == nil {
		d.EventsByType = map[string]int{}
	}
	d.SystemHealth = HealthExcellent
	if d.Database != "ok" || d.Cache != "ok" {
		d.SystemHealth = HealthDegraded
	}
	d.UptimeSeconds = int64(now.Sub(s.startedAt).Seconds())
	d.Alerts = s.alerts(d)
	return d, nil
}

func (s *DashboardService) probe(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "unavailable"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		s.logger.Warn("dashboard health probe failed", slog.String("store", name), slog.String("error", err.Error()))
		return "unavailable"
	}
	return "ok"
}

func (s *DashboardService) alerts(d *Dashboard) []Alert {
	alerts := []Alert{}
	if s.errorThreshold > 0 && d.ErrorLogs24h >= s.errorThreshold {
		alerts = append(alerts, Alert{
			Level:   "warning",
			Metric:  "error_logs_24h",
			Message: fmt.Sprintf("%d error log entries in the last 24h", d.ErrorLogs24h),
			Value:   d.ErrorLogs24h,
			Limit:   s.errorThreshold,
		})
	}
	if d.SystemHealth == HealthDegraded {
		alerts = append(alerts, Alert{
			Level:   "critical",
			Metric:  "system_health",
			Message: "a backing store is not responding",
		})
	}
	return alerts
}

func wrapCount(what string, err error) error {
	if err != nil {
		return fmt.Errorf("count %s: %w", what, err)
	}
	return nil
}
