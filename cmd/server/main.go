package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/omnicore/omniaudit/internal/catalog"
	"github.com/omnicore/omniaudit/internal/compliance"
	"github.com/omnicore/omniaudit/internal/featureflags"
	"github.com/omnicore/omniaudit/internal/handler"
	"github.com/omnicore/omniaudit/internal/infrastructure/events"
	"github.com/omnicore/omniaudit/internal/infrastructure/logger"
	"github.com/omnicore/omniaudit/internal/infrastructure/notion"
	"github.com/omnicore/omniaudit/internal/infrastructure/redis"
	"github.com/omnicore/omniaudit/internal/llm"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
	"github.com/omnicore/omniaudit/internal/observability/tracing"
	"github.com/omnicore/omniaudit/internal/reliability/retry"
	"github.com/omnicore/omniaudit/internal/repository"
	"github.com/omnicore/omniaudit/internal/security"
	"github.com/omnicore/omniaudit/internal/security/auth"
	"github.com/omnicore/omniaudit/internal/security/middleware"
	"github.com/omnicore/omniaudit/internal/security/ratelimit"
	"github.com/omnicore/omniaudit/internal/service"
	"github.com/omnicore/omniaudit/internal/worker"
	"github.com/omnicore/omniaudit/pkg/cache"
	"github.com/omnicore/omniaudit/pkg/config"
	"github.com/omnicore/omniaudit/pkg/database"
)

const maxBodyBytes = 1 << 20

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting omniaudit server", slog.String("environment", cfg.Environment))

	if err := run(cfg, log); err != nil {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	startedAt := time.Now()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTELEndpoint, "omniaudit", cfg.Environment)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// 4. Postgres and migrations
	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL, "up"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("database migrations applied")
	}
	store, err := database.Open(ctx, cfg.DatabaseURL, database.PoolOptions{}, log)
	if err != nil {
		return err
	}
	defer store.Close()
	db := store.DB()

	// 5. Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// 6. Compliance sinks
	var publisher compliance.Publisher
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kafka := events.NewKafkaPublisher(brokers, cfg.ComplianceTopic)
		defer func() {
			if err := kafka.Close(); err != nil {
				log.Error("kafka close failed", slog.String("error", err.Error()))
			}
		}()
		publisher = kafka
		log.Info("compliance events published to kafka", slog.String("topic", kafka.Topic()))
	}
	auditTrail := compliance.NewLogger(log, repository.NewPostgresComplianceRepository(db), publisher)

	// 7. Repositories
	auditRepo := repository.NewPostgresAuditRepository(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	taskRepo := repository.NewPostgresTaskRepository(db, log)
	logRepo := repository.NewPostgresLogRepository(db, log)
	analyticsRepo := repository.NewPostgresAnalyticsRepository(db, log)
	referralRepo := repository.NewPostgresReferralRepository(db, log)
	usage := featureflags.NewUsageManager(repository.NewRedisUsageStore(redisClient))
	history := repository.NewRedisChatHistoryStore(redisClient)

	// 8. LLM router
	router := llm.NewRouter(log, llmClients(cfg),
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithRetry(retry.NewPolicy(cfg.LLMMaxAttempts)),
	)

	// 9. Services
	c, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}
	notionClient, err := notion.NewClient(cfg.NotionSecret, cfg.NotionPageURL, cfg.LLMTimeout, log)
	if err != nil {
		return fmt.Errorf("notion: %w", err)
	}

	logsHandler := handler.NewLogsHandler(log, cfg.AllowedOrigins())
	analytics := service.NewAnalyticsService(analyticsRepo, log)
	referrals := service.NewReferralService(referralRepo, cfg.ReferralCredits, analytics, log)
	logs := service.NewLogService(logRepo, logsHandler, log)
	logsHandler.SetLogService(logs)
	tooltipCache := cache.New[*service.Tooltip]()

	authService := service.NewAuthService(userRepo, tokens, referrals, analytics, log)
	audits := service.NewAuditService(auditRepo, router, analytics, log)
	chat := service.NewChatService(router, usage, history, analytics, log)
	tasks := service.NewTaskService(taskRepo, logs, router, analytics, log)
	automation := service.NewAutomationService(router, usage, logs, analytics, log)
	tooltips := service.NewTooltipService(c, router, tooltipCache)
	notionSync := service.NewNotionService(auditRepo, notionClient, log)
	dbPing := service.PingFunc(store.Ping)
	dashboard := service.NewDashboardService(service.DashboardStores{
		Audits:    auditRepo,
		Users:     userRepo,
		Tasks:     taskRepo,
		Logs:      logRepo,
		Analytics: analyticsRepo,
		Referrals: referralRepo,
	}, dbPing, redisClient, cfg.AlertErrorLimit, startedAt, log)

	// 10. Background workers
	scheduler := worker.NewScheduler(taskRepo, tasks, log, cfg.LLMTimeout*2)
	tasks.SetScheduler(scheduler)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	janitor := worker.NewJanitor(map[string]worker.Pruner{"tooltips": tooltipCache}, log, 5*time.Minute)
	go janitor.Start(ctx)

	// 11. Routes
	authz := security.NewAuthorizer(log)
	routes := &handler.Routes{
		Health:     handler.NewHealthHandler(dbPing, redisClient, log),
		Auth:       handler.NewAuthHandler(authService, auditTrail, log),
		Audits:     handler.NewAuditHandler(audits, log),
		Catalog:    handler.NewCatalogHandler(c, tooltips, log),
		Chat:       handler.NewChatHandler(chat, usage, log),
		Tasks:      handler.NewTaskHandler(tasks, automation, log),
		Logs:       logsHandler,
		Engagement: handler.NewEngagementHandler(referrals, analytics, log),
		Admin:      handler.NewAdminHandler(dashboard, auditTrail, notionSync, log),
		Demo:       handler.NewDemoHandler(log),
		Metrics:    promhttp.Handler(),
		Authz:      authz,
		Compliance: auditTrail,
	}
	mux := http.NewServeMux()
	routes.Register(mux)

	// 12. Middleware: request ID -> CORS -> metrics -> access log -> sanitize -> JWT -> rate limit -> compliance -> content type -> body limit
	limiter := ratelimit.New(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	root := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.CORS(cfg.AllowedOrigins()),
		metrics.HTTPMetricsMiddleware(mux),
		middleware.RequestLogger(log),
		middleware.SanitizeInputs(log),
		middleware.JWTMiddleware(tokens, handler.IsPublic, log),
		middleware.RateLimitMiddleware(limiter, handler.IsProbe, log),
		middleware.ComplianceMiddleware(auditTrail),
		middleware.ValidateJSONContentType(log),
		middleware.LimitBody(maxBodyBytes),
	)

	// 13. HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(root, "omniaudit"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Int("scheduled_tasks", scheduler.Len()),
		slog.Bool("notion", notionClient.Configured()),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// 14. Graceful shutdown. Deferred closes run after this in reverse order.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("scheduler stop timed out with runs in flight")
	}
	return nil
}

// llmClients returns a client per provider that has an API key
func llmClients(cfg *config.Config) []llm.Client {
	hc := llm.NewHTTPClient(cfg.LLMTimeout)
	var clients []llm.Client
	if cfg.OpenAIAPIKey != "" {
		clients = append(clients, llm.NewOpenAIClient(cfg.OpenAIAPIKey, hc))
	}
	if cfg.AnthropicAPIKey != "" {
		clients = append(clients, llm.NewAnthropicClient(cfg.AnthropicAPIKey, hc))
	}
	if cfg.PerplexityAPIKey != "" {
		clients = append(clients, llm.NewPerplexityClient(cfg.PerplexityAPIKey, hc))
	}
	return clients
}
