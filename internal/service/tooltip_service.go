package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omnicore/omniaudit/internal/catalog"
	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/llm"
	"github.com/omnicore/omniaudit/pkg/cache"
)

const tooltipTTL = 10 * time.Minute

// FieldCatalog describes the known form fields
type FieldCatalog interface {
	Field(name string) (catalog.Field, bool)
	Fields() []catalog.Field
}

// Tooltip is generated help text for a form field
type Tooltip struct {
	Field       string       `json:"field"`
	Description string       `json:"description"`
	Help        string       `json:"help"`
	Provider    llm.Provider `json:"provider"`
}

// TooltipService generates and caches field help text
type TooltipService struct {
	fields    FieldCatalog
	generator Generator
	cache     *cache.Cache[*Tooltip]
}

// NewTooltipService creates a tooltip service
func NewTooltipService(fields FieldCatalog, generator Generator, c *cache.Cache[*Tooltip]) *TooltipService {
	if c == nil {
		c = cache.New[*Tooltip]()
	}
	return &TooltipService{fields: fields, generator: generator, cache: c}
}

// Get returns help for a known field. Unknown fields yield domain.ErrNotFound.
func (s *TooltipService) Get(ctx context.Context, field string) (*Tooltip, error) {
	f, ok := s.fields.Field(field)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.cache.GetOrLoad(ctx, "tooltip:"+f.Name, tooltipTTL, func(ctx context.Context) (*Tooltip, error) {
		if s.generator == nil {
			return nil, llm.ErrProviderUnavailable
		}
		resp, err := s.generator.Generate(ctx, llm.GPT4oMini, llm.Request{
			System:    "You write one or two friendly sentences explaining a business questionnaire field to a small-business owner.",
			Prompt:    fmt.Sprintf("Field %q: %s. Explain why it matters and how to answer it.", f.Name, f.Description),
			MaxTokens: 120,
		})
		if err != nil {
			return nil, fmt.Errorf("generate tooltip: %w", err)
		}
		return &Tooltip{
			Field:       f.Name,
			Description: f.Description,
			Help:        strings.TrimSpace(resp.Content),
			Provider:    resp.Provider,
		}, nil
	})
}

// All returns the static description of every known field
func (s *TooltipService) All() []catalog.Field {
	return s.fields.Fields()
}
