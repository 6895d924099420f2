package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/telemetry"
)

// Migrate applies pending schema migrations from fsys, where path names
// the directory inside fsys holding the numbered .sql migration files.
// golang-migrate takes a PostgreSQL advisory lock, so concurrent
// instances cannot apply migrations at the same time.
func (p *Pool) Migrate(ctx context.Context, fsys fs.FS, path string) error {
	ctx, span := telemetry.StartDBSpan(ctx, telemetry.OpDBMigrate, telemetry.DBName(p.config.Database))
	defer span.End()

	logger.InfoCtx(ctx, "running database migrations",
		logger.Component("pool"),
		logger.Database(p.config.Database),
	)

	// golang-migrate drives database/sql, not pgx, so it gets its own
	// short-lived connection.
	db, err := sql.Open("pgx", p.config.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    p.config.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("migration failed: %w", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.InfoCtx(ctx, "schema is up to date", logger.Component("pool"))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if err == nil {
		logger.InfoCtx(ctx, "schema version",
			logger.Component("pool"),
			slog.Uint64(logger.KeyMigration, uint64(version)),
			slog.Bool("dirty", dirty),
		)
		if dirty {
			logger.WarnCtx(ctx, "schema is in a dirty state, manual intervention may be required",
				logger.Component("pool"),
			)
		}
	}

	return nil
}
