// Package llm routes prompts to OpenAI, Anthropic or Perplexity based on a
// query's complexity and the caller's tier.
package llm

import (
	"context"
	"errors"

	"github.com/omnicore/omniaudit/internal/reliability/circuitbreaker"
)

var (
	// ErrProviderUnavailable is returned when a provider has no API key or client
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	// ErrCircuitOpen is returned while a provider's breaker rejects calls
	ErrCircuitOpen = circuitbreaker.ErrOpen
)

// Provider names an upstream LLM vendor
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderPerplexity Provider = "perplexity"
	ProviderNone       Provider = "none"
)

// Complexity is the classifier's verdict on a query
type Complexity string

const (
	Simple   Complexity = "simple"
	Complex  Complexity = "complex"
	Research Complexity = "research"
)

// Message is one prior turn sent as context
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request
type Request struct {
	System    string
	Prompt    string
	History   []Message
	MaxTokens int
}

// Completion is what a provider client returns
type Completion struct {
	Text       string
	TokensUsed int
}

// Client talks to one provider
type Client interface {
	Provider() Provider
	Complete(ctx context.Context, model string, req Request) (*Completion, error)
}

// Response is the routed answer with the metadata the API reports
type Response struct {
	Content       string     `json:"content"`
	Provider      Provider   `json:"provider"`
	Model         string     `json:"model"`
	Complexity    Complexity `json:"complexity"`
	Confidence    float64    `json:"confidence"`
	TokensUsed    int        `json:"tokensUsed"`
	EstimatedCost float64    `json:"estimatedCost"`
	Fallback      bool       `json:"fallback"`
}

// EstimateCost applies a per-1K-token rate
func EstimateCost(tokens int, ratePer1K float64) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000 * ratePer1K
}
