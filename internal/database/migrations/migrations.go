package migrations

import (
	"errors"
	"fmt"
	"os"

	"campus-events/internal/config"
	"campus-events/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"
)

// Runner applies the SQL files in MigrationsDir to the Postgres database
// behind a bun.DB.
type Runner struct {
	bunDB    *bun.DB
	dir      string
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) *Runner {
	return &Runner{bunDB: bunDB, dir: cfg.MigrationsDir, logger: log}
}

func (r *Runner) Initialize() error {
	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory does not exist: %s", r.dir)
	}

	driver, err := postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+r.dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	r.migrator = migrator
	return nil
}

func (r *Runner) ensure() error {
	if r.migrator != nil {
		return nil
	}
	return r.Initialize()
}

// Up applies every pending migration. A dirty schema is reported, not forced.
func (r *Runner) Up() error {
	if err := r.ensure(); err != nil {
		return err
	}

	if version, dirty, err := r.migrator.Version(); err == nil && dirty {
		return fmt.Errorf("schema version %d is dirty, fix it with the migrate tool's force command", version)
	}

	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, _, err := r.migrator.Version()
	switch {
	case err == nil:
		r.logger.LogDatabase("MIGRATE", "schema", fmt.Sprintf("at version %d", version))
	case errors.Is(err, migrate.ErrNilVersion):
		r.logger.LogDatabase("MIGRATE", "schema", "no migrations found")
	default:
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	return nil
}

// Down rolls back every migration.
func (r *Runner) Down() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// To moves the schema up or down to version.
func (r *Runner) To(version uint) error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// Force sets the recorded version without running anything. Used to recover
// from a dirty schema after a manual fix.
func (r *Runner) Force(version int) error {
	if err := r.ensure(); err != nil {
		return err
	}
	return r.migrator.Force(version)
}

func (r *Runner) Version() (uint, bool, error) {
	if err := r.ensure(); err != nil {
		return 0, false, err
	}
	return r.migrator.Version()
}

func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("error closing migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("error closing migrator database: %w", databaseErr)
	}
	return nil
}
