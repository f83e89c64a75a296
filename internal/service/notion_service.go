package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/featureflags"
	"github.com/omnicore/omniaudit/internal/infrastructure/notion"
)

// ErrNotionUnavailable is returned when sync is disabled or not configured
var ErrNotionUnavailable = errors.New("notion sync unavailable")

// ErrNotionUpstream wraps a failed Notion API call
var ErrNotionUpstream = errors.New("notion upstream failure")

// BlockAppender writes blocks to the configured Notion page
type BlockAppender interface {
	Configured() bool
	AppendBlocks(ctx context.Context, blocks []notion.Block) error
}

// NotionService exports audits to Notion
type NotionService struct {
	audits domain.AuditRepository
	client BlockAppender
	logger *slog.Logger
}

// NewNotionService creates a notion service; client may be nil
func NewNotionService(audits domain.AuditRepository, client BlockAppender, logger *slog.Logger) *NotionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotionService{audits: audits, client: client, logger: logger}
}

// SyncResult reports what was written
type SyncResult struct {
	AuditID int64 `json:"auditId"`
	Blocks  int   `json:"blocks"`
}

// SyncAudit appends the audit summary to the Notion page. Disabled or
// unconfigured sync yields ErrNotionUnavailable, a missing audit
// domain.ErrNotFound and an API failure ErrNotionUpstream.
func (s *NotionService) SyncAudit(ctx context.Context, id int64) (*SyncResult, error) {
	if !featureflags.Enabled(featureflags.NotionSync) || s.client == nil || !s.client.Configured() {
		return nil, ErrNotionUnavailable
	}

	audit, err := s.audits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	blocks := AuditBlocks(audit)
	if err := s.client.AppendBlocks(ctx, blocks); err != nil {
		s.logger.Error("notion sync failed", slog.Int64("audit_id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrNotionUpstream, err)
	}

	s.logger.Info("audit synced to notion", slog.Int64("audit_id", id), slog.Int("blocks", len(blocks)))
	return &SyncResult{AuditID: id, Blocks: len(blocks)}, nil
}

// AuditBlocks renders an audit as Notion blocks
func AuditBlocks(a *domain.Audit) []notion.Block {
	blocks := []notion.Block{
		notion.Heading(fmt.Sprintf("%s (%s)", a.BusinessName, a.Industry)),
		notion.Paragraph(fmt.Sprintf("Audit #%d submitted %s", a.ID, a.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))),
	}

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		blocks = append(blocks, notion.Subheading(title))
		for _, it := range items {
			blocks = append(blocks, notion.Bullet(it))
		}
	}
	section("Strengths", a.Strengths)
	section("Opportunities", a.Opportunities)

	recs := make([]string, 0, len(a.Recommendations))
	for _, r := range a.Recommendations {
		recs = append(recs, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Priority), r.Title, r.Description))
	}
	section("Recommendations", recs)

	modules := make([]string, 0, len(a.WorkflowRecommendations))
	for _, m := range a.WorkflowRecommendations {
		modules = append(modules, fmt.Sprintf("%s: %s", m.Name, m.EstimatedImpact))
	}
	section("Suggested modules", modules)

	if a.AIRecommendation != "" {
		blocks = append(blocks, notion.Subheading("AI recommendation"), notion.Paragraph(a.AIRecommendation))
	}
	return append(blocks, notion.Divider())
}
