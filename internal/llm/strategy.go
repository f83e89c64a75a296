package llm

import (
	"strings"

	"github.com/omnicore/omniaudit/internal/domain"
)

// Classifier decides how demanding a query is
type Classifier interface {
	Classify(query string) Complexity
}

// Selector picks a provider configuration for a tier and complexity
type Selector interface {
	Select(tier domain.Tier, complexity Complexity) ProviderConfig
}

// ProviderConfig is a concrete provider+model choice with its static scoring
type ProviderConfig struct {
	Provider   Provider
	Model      string
	Confidence float64
	CostPer1K  float64
}

// Models and their fixed confidence and rate
var (
	GPT4o = ProviderConfig{Provider: ProviderOpenAI, Model: "gpt-4o", Confidence: 0.85, CostPer1K: 0.005}
	// GPT4oMini is also the fallback model
	GPT4oMini = ProviderConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini", Confidence: 0.75, CostPer1K: 0.00015}
	Claude    = ProviderConfig{Provider: ProviderAnthropic, Model: "claude-3-5-sonnet-20241022", Confidence: 0.9, CostPer1K: 0.003}
	Sonar     = ProviderConfig{Provider: ProviderPerplexity, Model: "sonar", Confidence: 0.8, CostPer1K: 0.001}
)

var (
	researchKeywords = []string{"latest", "news", "research", "current", "recent", "trend", "today", "this year"}
	complexKeywords  = []string{"analyze", "analysis", "strategy", "strategic", "compare", "comparison", "evaluate", "optimize", "forecast", "roadmap"}
)

// KeywordClassifier matches lowercase substrings. Research wins over complex.
type KeywordClassifier struct{}

// Classify implements Classifier
func (KeywordClassifier) Classify(query string) Complexity {
	q := strings.ToLower(query)
	for _, kw := range researchKeywords {
		if strings.Contains(q, kw) {
			return Research
		}
	}
	for _, kw := range complexKeywords {
		if strings.Contains(q, kw) {
			return Complex
		}
	}
	return Simple
}

// TierSelector is the fixed routing table
type TierSelector struct{}

// Select implements Selector
func (TierSelector) Select(tier domain.Tier, complexity Complexity) ProviderConfig {
	switch complexity {
	case Research:
		return Sonar
	case Complex:
		if tier == domain.TierProfessional || tier == domain.TierEnterprise {
			return Claude
		}
		return GPT4o
	default:
		return GPT4oMini
	}
}
