package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/synura/agency-api/internal/config"
	"github.com/synura/agency-api/internal/crm"
	httpmiddleware "github.com/synura/agency-api/internal/http/middleware"
	"github.com/synura/agency-api/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ConnectPostgresPool opens the lead capture database. An empty URL or a
// failed connection returns nil and the service runs without the lead log.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres unavailable; lead log disabled", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("postgres ping failed; lead log disabled", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildRateLimiter returns the public per-IP limiter: Redis-backed when a
// client is available, in-process otherwise. A zero limit disables it.
func BuildRateLimiter(cfg *appconfig.Config, redisClient *redis.Client) httpmiddleware.Limiter {
	if cfg == nil || cfg.PublicRateLimit <= 0 {
		return nil
	}
	if redisClient != nil {
		return httpmiddleware.NewRedisRateLimiter(redisClient, cfg.PublicRateLimit, time.Minute)
	}
	return httpmiddleware.NewWindowRateLimiter(cfg.PublicRateLimit, time.Minute)
}

// BuildCRM returns the Kit client (nil without an API key) and an upserter.
// The upserter is always usable and reports not-configured when the client
// is missing.
func BuildCRM(cfg *appconfig.Config, logger *logging.Logger) (*crm.Client, *crm.Upserter) {
	if logger == nil {
		logger = logging.Default()
	}
	client, err := crm.New(crm.Config{
		APIKey:  cfg.KitAPIKey,
		BaseURL: cfg.KitBaseURL,
		Timeout: cfg.SideEffectTimeout,
		Logger:  logger,
	})
	if err != nil {
		if errors.Is(err, crm.ErrNotConfigured) {
			logger.Warn("KIT_API_KEY not set; CRM sync disabled")
		} else {
			logger.Error("failed to build kit client", "error", err)
		}
		return nil, crm.NewUpserter(nil, cfg.SideEffectTimeout, logger)
	}
	return client, crm.NewUpserter(client, cfg.SideEffectTimeout, logger)
}
