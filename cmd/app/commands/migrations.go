package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationDirs maps a DB_DRIVER value to its directory under migrations/.
var migrationDirs = map[string]string{
	"postgres": "postgresql",
	"mysql":    "mysql",
}

// RunMigrations applies every pending migration for dbDriver. The memory
// driver has nothing to migrate.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	if dbDriver == "memory" {
		logger.Info("memory driver selected, skipping migrations")
		return nil
	}

	dir, ok := migrationDirs[dbDriver]
	if !ok {
		return fmt.Errorf("no migrations for database driver %q", dbDriver)
	}

	logger.Info("running database migrations", slog.String("driver", dbDriver))

	m, err := migrate.New("file://migrations/"+dir, migrateURL(dbDriver, dbConnectionString))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.Info("migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// migrateURL adds the scheme golang-migrate needs to pick its database
// driver. go-sql-driver DSNs ("user:pass@tcp(host)/db") have none.
func migrateURL(dbDriver, dsn string) string {
	if dbDriver == "mysql" && !strings.HasPrefix(dsn, "mysql://") {
		return "mysql://" + dsn
	}
	return dsn
}
