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
	openAIBaseURL     = "https://api.openai.com/v1"
	perplexityBaseURL = "https://api.perplexity.ai"
	defaultMaxTokens  = 800
)

// ChatCompletionsClient speaks the OpenAI chat completions protocol.
// Perplexity exposes the same protocol at a different base URL.
type ChatCompletionsClient struct {
	provider Provider
	apiKey   string
	baseURL  string
	hc       *http.Client
}

// NewOpenAIClient creates an OpenAI client. An empty key makes every call
// fail with ErrProviderUnavailable.
func NewOpenAIClient(apiKey string, hc *http.Client) *ChatCompletionsClient {
	return &ChatCompletionsClient{provider: ProviderOpenAI, apiKey: apiKey, baseURL: openAIBaseURL, hc: hc}
}

// NewPerplexityClient creates a Perplexity client
func NewPerplexityClient(apiKey string, hc *http.Client) *ChatCompletionsClient {
	return &ChatCompletionsClient{provider: ProviderPerplexity, apiKey: apiKey, baseURL: perplexityBaseURL, hc: hc}
}

// WithBaseURL points the client at another endpoint (tests, proxies)
func (c *ChatCompletionsClient) WithBaseURL(url string) *ChatCompletionsClient {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// Provider implements Client
func (c *ChatCompletionsClient) Provider() Provider {
	return c.provider
}

type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete implements Client
func (c *ChatCompletionsClient) Complete(ctx context.Context, model string, req Request) (*Completion, error) {
	if c.apiKey == "" {
		return nil, retry.Permanent(fmt.Errorf("%s: %w", c.provider, ErrProviderUnavailable))
	}

	messages := make([]Message, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var out chatCompletionResponse
	err := postJSON(ctx, c.hc, c.provider, c.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.apiKey},
		chatCompletionRequest{Model: model, Messages: messages, MaxTokens: maxTokens},
		&out,
	)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, errors.New(string(c.provider) + ": empty completion")
	}

	return &Completion{Text: out.Choices[0].Message.Content, TokensUsed: out.Usage.TotalTokens}, nil
}
