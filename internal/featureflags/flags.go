package featureflags

import (
	"os"
	"strings"
)

// Known boolean flags
const (
	AIRecommendations = "ai_recommendations"
	NotionSync        = "notion_sync"
)

var defaults = map[string]bool{
	AIRecommendations: true,
	NotionSync:        false,
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive);
// an unset flag uses its default.
func Enabled(name string) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || strings.TrimSpace(v) == "" {
		return defaults[name]
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
