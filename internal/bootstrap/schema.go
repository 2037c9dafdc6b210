package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/database"
)

var migrate = database.Migrate

// EnsureSchema creates the users and projects tables on start. Re-running it
// against an existing database is a no-op.
func EnsureSchema(lc fx.Lifecycle, db *sql.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureSchema(ctx, db, logger)
		},
	})
}

func ensureSchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	start := time.Now()
	if err := migrate(ctx, db); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	if logger != nil {
		logger.Info("schema ready", zap.Duration("took", time.Since(start)))
	}
	return nil
}
