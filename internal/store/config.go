package store

import (
	"database/sql"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/audit"
)

// GetConfig returns a runtime config entry, if one has been written.
func (s *Store) GetConfig(namespace, key string) (*ConfigEntry, bool, error) {
	row := s.reader.QueryRow(`SELECT Namespace, Key, Value, UpdatedAt, UpdatedBy FROM config_entries WHERE Namespace = ? AND Key = ?`, namespace, key)
	e := &ConfigEntry{}
	if err := row.Scan(&e.Namespace, &e.Key, &e.Value, &e.UpdatedAt, &e.UpdatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, Internal(err)
	}
	return e, true, nil
}

// ListConfig returns every config entry in a namespace.
func (s *Store) ListConfig(namespace string) ([]*ConfigEntry, error) {
	rows, err := s.reader.Query(`SELECT Namespace, Key, Value, UpdatedAt, UpdatedBy FROM config_entries WHERE Namespace = ? ORDER BY Key`, namespace)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*ConfigEntry
	for rows.Next() {
		e := &ConfigEntry{}
		if err := rows.Scan(&e.Namespace, &e.Key, &e.Value, &e.UpdatedAt, &e.UpdatedBy); err != nil {
			return nil, Internal(err)
		}
		out = append(out, e)
	}
	return out, Internal(rows.Err())
}

// SetConfig upserts a runtime setting and appends an audit entry for it
// (SPEC_FULL.md §3 "Audit trail"). The database is authoritative over the
// YAML file once any entry exists (spec §6.2 dual-sourcing).
func (s *Store) SetConfig(namespace, key, value, updatedBy string) (*ConfigEntry, error) {
	if namespace == "" || key == "" {
		return nil, Invalid("config.invalid", "namespace and key are required")
	}
	old, _, err := s.GetConfig(namespace, key)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.writer.Exec(
		`INSERT INTO config_entries (Namespace, Key, Value, UpdatedAt, UpdatedBy) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(Namespace, Key) DO UPDATE SET Value = excluded.Value, UpdatedAt = excluded.UpdatedAt, UpdatedBy = excluded.UpdatedBy`,
		namespace, key, value, now, updatedBy,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "upsert config entry"))
	}

	oldValue := ""
	if old != nil {
		oldValue = old.Value
	}
	if auditErr := s.Audit.Record(audit.Entry{Namespace: namespace, Key: key, OldValue: oldValue, NewValue: value, UpdatedBy: updatedBy, At: now}); auditErr != nil {
		// The audit trail is advisory to the caller's config write; a failure
		// here must not roll back an otherwise-successful config mutation.
		log.Printf("store: failed to record audit entry for %s.%s: %v", namespace, key, auditErr)
	}

	return &ConfigEntry{Namespace: namespace, Key: key, Value: value, UpdatedAt: now, UpdatedBy: updatedBy}, nil
}
