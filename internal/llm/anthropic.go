package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/omnicore/omniaudit/internal/reliability/retry"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API
type AnthropicClient struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

// NewAnthropicClient creates an Anthropic client
func NewAnthropicClient(apiKey string, hc *http.Client) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey, baseURL: anthropicBaseURL, hc: hc}
}

// WithBaseURL points the client at another endpoint
func (c *AnthropicClient) WithBaseURL(url string) *AnthropicClient {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// Provider implements Client
func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete implements Client
func (c *AnthropicClient) Complete(ctx context.Context, model string, req Request) (*Completion, error) {
	if c.apiKey == "" {
		return nil, retry.Permanent(fmt.Errorf("%s: %w", ProviderAnthropic, ErrProviderUnavailable))
	}

	messages := make([]Message, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == "user" || m.Role == "assistant" {
			messages = append(messages, m)
		}
	}
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var out anthropicResponse
	err := postJSON(ctx, c.hc, ProviderAnthropic, c.baseURL+"/messages",
		map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": anthropicVersion,
		},
		anthropicRequest{Model: model, System: req.System, Messages: messages, MaxTokens: maxTokens},
		&out,
	)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, errors.New("anthropic: empty completion")
	}

	return &Completion{
		Text:       sb.String(),
		TokensUsed: out.Usage.InputTokens + out.Usage.OutputTokens,
	}, nil
}
