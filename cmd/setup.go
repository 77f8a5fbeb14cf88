package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/dtunes/internal/repositories/postgres"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes a config file when none exists, then creates the schema for the configured driver.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		r.config = config
		r.writePlain("%s\n", r.palette.OK("config written to "+configPath))
	}

	database := r.config.Database
	switch database.Driver {
	case "memory":
		r.logger.Warn("memory driver keeps nothing between runs, no schema to create")
		return nil

	case "postgres":
		r.logger.Info("migrating postgres schema")
		pool, err := postgres.Connect(ctx, database.URL, int32(database.MaxOpenConns))
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		r.writePlain("%s\n", r.palette.OK("postgres schema ready"))
		return nil

	default:
		r.logger.Info("initializing database", "path", database.Path)
		db, err := shared.NewDatabase(database.Path)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, database.MaxOpenConns, database.MaxIdleConns)

		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		applied, total, err := shared.MigrationStatus(db)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("%s at migration %d/%d", database.Path, applied, total)))
		return nil
	}
}

// RollbackDatabase reverts the newest applied sqlite migration. Postgres schemas are only ever created.
func (r *Runner) RollbackDatabase(ctx context.Context, cmd *cli.Command) error {
	database := r.config.Database
	if database.Driver != "sqlite" {
		return fmt.Errorf("%w: rollback is only supported for sqlite, driver is %q", shared.ErrInvalidConfig, database.Driver)
	}

	db, err := shared.NewDatabase(database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, err := shared.RollbackMigration(db)
	if err != nil {
		return err
	}

	r.logger.Info("migration rolled back", "version", version, "path", database.Path)
	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("rolled back migration %d", version)))
	return nil
}
