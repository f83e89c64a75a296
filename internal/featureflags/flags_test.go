package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_Defaults(t *testing.T) {
	t.Setenv("FLAG_AI_RECOMMENDATIONS", "")
	t.Setenv("FLAG_NOTION_SYNC", "")

	assert.True(t, Enabled(AIRecommendations))
	assert.False(t, Enabled(NotionSync))
	assert.False(t, Enabled("unknown_flag"))
}

func TestEnabled_Overrides(t *testing.T) {
	t.Setenv("FLAG_AI_RECOMMENDATIONS", "off")
	t.Setenv("FLAG_NOTION_SYNC", "YES")

	assert.False(t, Enabled(AIRecommendations))
	assert.True(t, Enabled(NotionSync))
}
