package store

import (
	"embed"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// applyMigrations brings dbPath's schema up to date using the embedded
// SQL files, the way the teacher's go.mod already declared intent to
// (golang-migrate was present but unused in the reference repo; here it
// drives the Store's actual schema versioning).
func applyMigrations(dbPath string) error {
	src, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return errors.Wrap(err, "open embedded migrations")
	}
	sourceDriver, err := iofs.New(src, ".")
	if err != nil {
		return errors.Wrap(err, "build migration source")
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, "sqlite3://"+dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return errors.Wrap(err, "build migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
