// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tandem/internal/cache"
	"tandem/internal/config"
	"tandem/internal/database"
	"tandem/internal/observability"
	"tandem/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo applies the built-in demo fixture. It only runs in development.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis, applies the schema and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()
	if r == nil {
		observability.GlobalLogger.Warn("redis unavailable; events reach this instance's devices only")
	}

	if opts.SeedDemo && strings.EqualFold(cfg.Env, "development") {
		if err := seed.Demo(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}
