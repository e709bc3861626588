package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"gorm.io/gorm"
)

// sqliteIndexes carries the partial indexes AutoMigrate cannot express.
var sqliteIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_items_single_promotion ON items (is_promoted) WHERE is_promoted = 1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_line_items_pending ON line_items (user_id, item_id) WHERE status = 'pending'`,
}

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are migrated from the models
// since the goose files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "dialect": client.Dialect()}
	ctx = logg.WithFields(ctx, meta)

	if client.Dialect() == db.DriverSQLite {
		logg.Info(ctx, "running model migrations (dev auto-run, sqlite)")
		if err := AutoMigrateModels(client.DB().WithContext(ctx)); err != nil {
			return err
		}
		logg.Info(ctx, "model migrations completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates the storefront tables from the GORM models.
func AutoMigrateModels(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Item{},
		&models.Order{},
		&models.LineItem{},
		&models.Admin{},
		&models.Feedback{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range sqliteIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
