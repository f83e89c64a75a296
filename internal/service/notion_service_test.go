package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/infrastructure/notion"
)

type fakeAppender struct {
	configured bool
	err        error
	blocks     []notion.Block
}

func (f *fakeAppender) Configured() bool { return f.configured }

func (f *fakeAppender) AppendBlocks(_ context.Context, blocks []notion.Block) error {
	if f.err != nil {
		return f.err
	}
	f.blocks = append(f.blocks, blocks...)
	return nil
}

func storedAudit(t *testing.T) *memAuditRepo {
	t.Helper()
	repo := &memAuditRepo{}
	form := validForm()
	require.NoError(t, repo.Create(context.Background(), &domain.Audit{
		BusinessName: form.BusinessName,
		Industry:     form.Industry,
		Form:         form,
		AuditResults: GenerateResults(form),
		CreatedAt:    time.Now(),
	}))
	return repo
}

func TestNotionSync_Disabled(t *testing.T) {
	t.Setenv("FLAG_NOTION_SYNC", "false")
	svc := NewNotionService(storedAudit(t), &fakeAppender{configured: true}, nil)
	_, err := svc.SyncAudit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotionUnavailable)
}

func TestNotionSync_NotConfigured(t *testing.T) {
	t.Setenv("FLAG_NOTION_SYNC", "true")
	svc := NewNotionService(storedAudit(t), &fakeAppender{}, nil)
	_, err := svc.SyncAudit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotionUnavailable)

	svc = NewNotionService(storedAudit(t), nil, nil)
	_, err = svc.SyncAudit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotionUnavailable)
}

func TestNotionSync_UnknownAudit(t *testing.T) {
	t.Setenv("FLAG_NOTION_SYNC", "true")
	svc := NewNotionService(storedAudit(t), &fakeAppender{configured: true}, nil)
	_, err := svc.SyncAudit(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotionSync_UpstreamFailure(t *testing.T) {
	t.Setenv("FLAG_NOTION_SYNC", "true")
	svc := NewNotionService(storedAudit(t), &fakeAppender{configured: true, err: errBoom}, nil)
	_, err := svc.SyncAudit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotionUpstream)
}

func TestNotionSync_AppendsSummary(t *testing.T) {
	t.Setenv("FLAG_NOTION_SYNC", "true")
	app := &fakeAppender{configured: true}
	svc := NewNotionService(storedAudit(t), app, nil)

	res, err := svc.SyncAudit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.AuditID)
	assert.Equal(t, len(app.blocks), res.Blocks)

	require.NotEmpty(t, app.blocks)
	assert.Equal(t, "heading_2", app.blocks[0].Type)
	assert.Equal(t, "Acme Bakery (restaurant)", app.blocks[0].Heading2.RichText[0].Text.Content)
	assert.Equal(t, "divider", app.blocks[len(app.blocks)-1].Type)
}
