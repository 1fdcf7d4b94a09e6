// Package store owns the single embedded SQLite database SparkQ runs on.
// It is the sole arbiter of durable state: every exported operation is a
// single transaction and reports *Error with a stable Kind/Code.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/audit"
)

// Store is the process-wide handle to the SQLite database. writer is a
// single-connection pool so every mutating statement is naturally
// serialized against SQLite's own writer lock (spec §4.1 "implicit write
// lock"); reader is a separate, more concurrent pool for read-only
// queries so list/get endpoints never queue up behind reapers or claims.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	Audit  *audit.Trail
}

// Open applies pending migrations and returns a ready Store. path is the
// SQLite file path; it and its WAL/shm sidecars are the only on-disk
// state the core owns (spec §6.3).
func Open(path string) (*Store, error) {
	if err := applyMigrations(path); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000&_foreign_keys=1", path)

	writer, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open writer connection")
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite3", dsn)
	if err != nil {
		writer.Close()
		return nil, errors.Wrap(err, "open reader connection")
	}
	reader.SetMaxOpenConns(8)

	return &Store{writer: writer, reader: reader, Audit: audit.New(writer)}, nil
}

// Close releases both connection pools.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
