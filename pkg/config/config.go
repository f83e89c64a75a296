package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Environment        string        `mapstructure:"ENVIRONMENT"`
	ServerPort         int           `mapstructure:"SERVER_PORT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	AutoMigrate        bool          `mapstructure:"AUTO_MIGRATE"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`
	JWTTTL             time.Duration `mapstructure:"JWT_TTL"`
	OpenAIAPIKey       string        `mapstructure:"OPENAI_API_KEY"`
	AnthropicAPIKey    string        `mapstructure:"ANTHROPIC_API_KEY"`
	PerplexityAPIKey   string        `mapstructure:"PERPLEXITY_API_KEY"`
	LLMTimeout         time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMMaxAttempts     int           `mapstructure:"LLM_MAX_ATTEMPTS"`
	NotionSecret       string        `mapstructure:"NOTION_INTEGRATION_SECRET"`
	NotionPageURL      string        `mapstructure:"NOTION_PAGE_URL"`
	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS"`
	ComplianceTopic    string        `mapstructure:"KAFKA_COMPLIANCE_TOPIC"`
	CORSOrigins        string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	ReferralCredits    int           `mapstructure:"REFERRAL_REWARD_CREDITS"`
	AlertErrorLimit    int           `mapstructure:"ALERT_ERROR_THRESHOLD"`
	OTELEndpoint       string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from an optional .env file and the environment.
// JWT_SECRET and DATABASE_URL have no defaults; startup fails without them.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "omniaudit")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("PERPLEXITY_API_KEY", "")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("LLM_MAX_ATTEMPTS", 2)
	v.SetDefault("NOTION_INTEGRATION_SECRET", "")
	v.SetDefault("NOTION_PAGE_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_COMPLIANCE_TOPIC", "omniaudit-compliance")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 100)
	v.SetDefault("REFERRAL_REWARD_CREDITS", 25)
	v.SetDefault("ALERT_ERROR_THRESHOLD", 10)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("config: invalid SERVER_PORT %d", c.ServerPort)
	}
	if c.LLMMaxAttempts < 1 {
		c.LLMMaxAttempts = 1
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 30 * time.Second
	}
	if c.JWTTTL <= 0 {
		c.JWTTTL = 24 * time.Hour
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("config: invalid RATE_LIMIT_PER_MINUTE %d", c.RateLimitPerMinute)
	}
	return nil
}

// AllowedOrigins returns the CORS origins from the comma-separated setting.
func (c *Config) AllowedOrigins() []string {
	return splitCSV(c.CORSOrigins)
}

// KafkaBrokerList returns broker addresses; empty disables publishing.
func (c *Config) KafkaBrokerList() []string {
	return splitCSV(c.KafkaBrokers)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
