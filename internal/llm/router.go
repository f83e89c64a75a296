package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/observability/metrics"
	"github.com/omnicore/omniaudit/internal/observability/tracing"
	"github.com/omnicore/omniaudit/internal/reliability/circuitbreaker"
	"github.com/omnicore/omniaudit/internal/reliability/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Router classifies a query, selects a provider and calls it, falling back
// to GPT4oMini once when the chosen provider fails.
type Router struct {
	classifier Classifier
	selector   Selector
	clients    map[Provider]Client
	breakers   map[Provider]*circuitbreaker.Breaker
	retry      retry.Policy
	timeout    time.Duration
	logger     *slog.Logger
}

// RouterOption customizes a Router
type RouterOption func(*Router)

// WithClassifier replaces the KeywordClassifier
func WithClassifier(c Classifier) RouterOption {
	return func(r *Router) { r.classifier = c }
}

// WithSelector replaces the TierSelector
func WithSelector(s Selector) RouterOption {
	return func(r *Router) { r.selector = s }
}

// WithRetry sets the per-call retry policy
func WithRetry(p retry.Policy) RouterOption {
	return func(r *Router) { r.retry = p }
}

// WithTimeout bounds each provider call
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

// NewRouter builds a router over the given clients. Each provider gets its own breaker.
func NewRouter(logger *slog.Logger, clients []Client, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		classifier: KeywordClassifier{},
		selector:   TierSelector{},
		clients:    make(map[Provider]Client, len(clients)),
		breakers:   make(map[Provider]*circuitbreaker.Breaker, len(clients)),
		retry:      retry.NewPolicy(2),
		timeout:    30 * time.Second,
		logger:     logger.With(slog.String("component", "llm_router")),
	}
	for _, c := range clients {
		p := c.Provider()
		r.clients[p] = c
		cb := circuitbreaker.New(string(p), circuitbreaker.Settings{
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				metrics.SetCircuitState(name, int(to))
				r.logger.Warn("llm circuit breaker state change",
					slog.String("provider", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		})
		r.breakers[p] = cb
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify exposes the configured classifier
func (r *Router) Classify(query string) Complexity {
	return r.classifier.Classify(query)
}

// Route answers req.Prompt with the provider chosen for tier
func (r *Router) Route(ctx context.Context, tier domain.Tier, req Request) (*Response, error) {
	complexity := r.classifier.Classify(req.Prompt)
	cfg := r.selector.Select(tier, complexity)
	return r.generate(ctx, cfg, complexity, req)
}

// Generate calls a fixed provider configuration with the same fallback rule
func (r *Router) Generate(ctx context.Context, cfg ProviderConfig, req Request) (*Response, error) {
	return r.generate(ctx, cfg, Simple, req)
}

func (r *Router) generate(ctx context.Context, cfg ProviderConfig, complexity Complexity, req Request) (*Response, error) {
	ctx, span := tracing.StartSpan(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", string(cfg.Provider)),
		attribute.String("llm.model", cfg.Model),
		attribute.String("llm.complexity", string(complexity)),
	)

	resp, err := r.call(ctx, cfg, req)
	if err == nil {
		resp.Complexity = complexity
		return resp, nil
	}

	if cfg == GPT4oMini {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failed")
		return nil, err
	}

	r.logger.Warn("llm provider failed, using fallback model",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", cfg.Model),
		slog.String("error", err.Error()),
	)
	resp, fbErr := r.call(ctx, GPT4oMini, req)
	if fbErr != nil {
		span.RecordError(fbErr)
		span.SetStatus(codes.Error, "fallback failed")
		return nil, fmt.Errorf("%s failed (%v); fallback: %w", cfg.Provider, err, fbErr)
	}
	resp.Complexity = complexity
	resp.Fallback = true
	return resp, nil
}

func (r *Router) call(ctx context.Context, cfg ProviderConfig, req Request) (*Response, error) {
	client, ok := r.clients[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrProviderUnavailable)
	}
	breaker := r.breakers[cfg.Provider]

	start := time.Now()
	var completion *Completion
	var unavailable error
	err := breaker.Execute(func() error {
		c, callErr := retry.Do(ctx, r.retry, r.logger, string(cfg.Provider), func(ctx context.Context) (*Completion, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return client.Complete(callCtx, cfg.Model, req)
		})
		if errors.Is(callErr, ErrProviderUnavailable) {
			// a missing key says nothing about provider health
			unavailable = callErr
			return nil
		}
		completion = c
		return callErr
	})
	if unavailable != nil {
		err = unavailable
	}
	if err != nil {
		metrics.ObserveLLMCall(string(cfg.Provider), cfg.Model, "error", time.Since(start), 0)
		return nil, err
	}

	cost := EstimateCost(completion.TokensUsed, cfg.CostPer1K)
	metrics.ObserveLLMCall(string(cfg.Provider), cfg.Model, "success", time.Since(start), cost)

	return &Response{
		Content:       completion.Text,
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		Confidence:    cfg.Confidence,
		TokensUsed:    completion.TokensUsed,
		EstimatedCost: cost,
	}, nil
}
