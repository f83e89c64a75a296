// Package notion appends blocks to a Notion page.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/omnicore/omniaudit/internal/reliability/retry"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
	// maxBlocksPerRequest is the API's cap on children in one append call
	maxBlocksPerRequest = 100
	maxTextLength       = 2000
)

var (
	// ErrNotConfigured is returned when the secret or page is missing
	ErrNotConfigured = errors.New("notion is not configured")
	// ErrInvalidPageURL is returned when no page id can be found in the URL
	ErrInvalidPageURL = errors.New("notion page url has no page id")
)

var pageIDPattern = regexp.MustCompile(`[0-9a-fA-F]{32}$|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ParsePageID extracts the page id from a Notion page URL such as
// https://www.notion.so/workspace/Audits-0123456789abcdef0123456789abcdef
func ParsePageID(pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPageURL, err)
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = u.Opaque
	}
	id := pageIDPattern.FindString(path)
	if id == "" {
		return "", ErrInvalidPageURL
	}
	id = strings.ToLower(strings.ReplaceAll(id, "-", ""))
	return fmt.Sprintf("%s-%s-%s-%s-%s", id[0:8], id[8:12], id[12:16], id[16:20], id[20:32]), nil
}

// Block is a Notion block object
type Block struct {
	Object           string     `json:"object"`
	Type             string     `json:"type"`
	Heading2         *RichBlock `json:"heading_2,omitempty"`
	Heading3         *RichBlock `json:"heading_3,omitempty"`
	Paragraph        *RichBlock `json:"paragraph,omitempty"`
	BulletedListItem *RichBlock `json:"bulleted_list_item,omitempty"`
	Divider          *struct{}  `json:"divider,omitempty"`
}

// RichBlock holds a block's text
type RichBlock struct {
	RichText []RichText `json:"rich_text"`
}

// RichText is one run of plain text
type RichText struct {
	Type string   `json:"type"`
	Text TextBody `json:"text"`
}

// TextBody is the content of a text run
type TextBody struct {
	Content string `json:"content"`
}

func rich(text string) *RichBlock {
	r := []rune(text)
	if len(r) > maxTextLength {
		text = string(r[:maxTextLength])
	}
	return &RichBlock{RichText: []RichText{{Type: "text", Text: TextBody{Content: text}}}}
}

// Heading returns a level-2 heading block
func Heading(text string) Block {
	return Block{Object: "block", Type: "heading_2", Heading2: rich(text)}
}

// Subheading returns a level-3 heading block
func Subheading(text string) Block {
	return Block{Object: "block", Type: "heading_3", Heading3: rich(text)}
}

// Paragraph returns a paragraph block
func Paragraph(text string) Block {
	return Block{Object: "block", Type: "paragraph", Paragraph: rich(text)}
}

// Bullet returns a bulleted list item block
func Bullet(text string) Block {
	return Block{Object: "block", Type: "bulleted_list_item", BulletedListItem: rich(text)}
}

// Divider returns a divider block
func Divider() Block {
	return Block{Object: "block", Type: "divider", Divider: &struct{}{}}
}

// APIError is a non-2xx reply from Notion
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: status %d: %s %s", e.Status, e.Code, e.Message)
}

// Client calls the Notion blocks API
type Client struct {
	secret  string
	pageID  string
	baseURL string
	hc      *http.Client
	retry   retry.Policy
	logger  *slog.Logger
}

// NewClient creates a client for one target page. An empty secret or page URL
// gives a client whose calls return ErrNotConfigured.
func NewClient(secret, pageURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		secret:  secret,
		baseURL: defaultBaseURL,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retry:  retry.NewPolicy(3),
		logger: logger,
	}
	if pageURL != "" {
		id, err := ParsePageID(pageURL)
		if err != nil {
			return nil, err
		}
		c.pageID = id
	}
	return c, nil
}

// WithBaseURL points the client at another endpoint
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Configured reports whether both secret and page are set
func (c *Client) Configured() bool {
	return c != nil && c.secret != "" && c.pageID != ""
}

// PageID returns the target page id
func (c *Client) PageID() string {
	return c.pageID
}

// AppendBlocks appends children to the target page in batches of 100
func (c *Client) AppendBlocks(ctx context.Context, blocks []Block) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	for start := 0; start < len(blocks); start += maxBlocksPerRequest {
		end := min(start+maxBlocksPerRequest, len(blocks))
		batch := blocks[start:end]
		_, err := retry.Do(ctx, c.retry, c.logger, "notion.append_blocks", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.patchChildren(ctx, batch)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) patchChildren(ctx context.Context, blocks []Block) error {
	payload, err := json.Marshal(map[string]any{"children": blocks})
	if err != nil {
		return retry.Permanent(fmt.Errorf("notion: encode blocks: %w", err))
	}

	endpoint := fmt.Sprintf("%s/blocks/%s/children", c.baseURL, c.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("notion: build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("notion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(apiErr)
	}
	return apiErr
}
