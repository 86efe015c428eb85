package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/hellofresh/health-go/v5"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
)

// Version is reported in the health component block
var Version = "dev"

// New builds the /health handler state. The database is checked through the
// server's own pool; Redis only backs rate limiting, so its failure degrades
// rather than fails the report.
func New(cfg *config.Config, db *sql.DB) (*health.Health, error) {
	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    "storefront",
			Version: Version,
		}),
		health.WithChecks(
			health.Config{
				Name:    "database",
				Timeout: 3 * time.Second,
				Check:   pingDatabase(db),
			},
			health.Config{
				Name:      "redis",
				Timeout:   2 * time.Second,
				SkipOnErr: true,
				Check: healthRedis.New(healthRedis.Config{
					DSN: cfg.Redis.DSN(),
				}),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}

func pingDatabase(db *sql.DB) health.CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}
