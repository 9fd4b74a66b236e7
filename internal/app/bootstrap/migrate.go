package bootstrap

import (
	"context"
	"fmt"

	"github.com/craftsmart/escrow-service/internal/adapters/postgres"
)

// Migrate applies the embedded schema without starting any server or worker.
func Migrate(ctx context.Context, configPath string) ([]string, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.StorageDriver != StorageDriverPostgres {
		return nil, fmt.Errorf("migrations need the postgres storage driver, got %q", cfg.StorageDriver)
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		return nil, err
	}
	defer func() { _ = postgres.Close(db) }()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return postgres.MigrationNames()
}
