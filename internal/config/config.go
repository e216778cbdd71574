package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration. It is loaded once at startup and
// passed by pointer to constructors; nothing mutates it afterwards.
type Config struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	Env                string        `env:"ENV" envDefault:"production"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	SideEffectTimeout  time.Duration `env:"SIDE_EFFECT_TIMEOUT" envDefault:"5s"`
	DatabaseURL        string        `env:"DATABASE_URL"`

	// Kit CRM
	KitAPIKey  string `env:"KIT_API_KEY"`
	KitBaseURL string `env:"KIT_BASE_URL" envDefault:"https://api.kit.com/v4"`

	// Email
	EmailProvider  string `env:"EMAIL_PROVIDER" envDefault:"auto"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"sales@synura.ai"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"Synura Notifications"`
	EmailToTeam    string `env:"EMAIL_TO_TEAM" envDefault:"sales@synura.ai"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailgunDomain  string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey  string `env:"MAILGUN_API_KEY"`

	// AWS (SES)
	AWSRegion           string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID      string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpointOverride string `env:"AWS_ENDPOINT_OVERRIDE"`

	// Retell voice agent
	RetellAPIKey  string `env:"RETELL_API_KEY"`
	RetellAgentID string `env:"RETELL_AGENT_ID"`
	RetellBaseURL string `env:"RETELL_BASE_URL" envDefault:"https://api.retellai.com"`

	// Redis backs the public rate limiter when set.
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisTLS        bool   `env:"REDIS_TLS" envDefault:"false"`
	PublicRateLimit int    `env:"PUBLIC_RATE_LIMIT" envDefault:"100"`

	// API keys. Hash cost is the bcrypt work factor for new keys.
	APIKeyHashCost int           `env:"API_KEY_HASH_COST" envDefault:"12"`
	APIKeyCacheTTL time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"1m"`

	// Admin session. Both values must be set or admin routes stay closed.
	AdminAccessKey     string        `env:"ADMIN_ACCESS_KEY"`
	AdminSessionSecret string        `env:"ADMIN_SESSION_SECRET"`
	AdminSessionTTL    time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"8h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.EmailProvider = strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 5 * time.Second
	}
	if cfg.PublicRateLimit < 0 {
		return nil, fmt.Errorf("config: PUBLIC_RATE_LIMIT must not be negative")
	}
	if cfg.APIKeyHashCost < bcrypt.MinCost || cfg.APIKeyHashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("config: API_KEY_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// AdminEnabled reports whether admin sessions can be issued.
func (c *Config) AdminEnabled() bool {
	return strings.TrimSpace(c.AdminAccessKey) != "" && strings.TrimSpace(c.AdminSessionSecret) != ""
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
