package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_Record(t *testing.T) {
	repo := &memAnalyticsRepo{}
	svc := NewAnalyticsService(repo, nil)

	ev, err := svc.Record(context.Background(), EventInput{EventType: " page_view ", Metadata: map[string]string{"path": "/audit"}}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "page_view", ev.EventType)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, []string{"page_view"}, repo.types())

	_, err = svc.Record(context.Background(), EventInput{}, "u1")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAnalytics_TrackSwallowsErrors(t *testing.T) {
	svc := NewAnalyticsService(&memAnalyticsRepo{err: errBoom}, nil)
	assert.NotPanics(t, func() {
		svc.Track(context.Background(), "x", "u1", nil)
	})
}
