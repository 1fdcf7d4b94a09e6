// Package audit records an append-only trail of runtime configuration
// mutations. It is the "hook" spec.md §9 requires ("Runtime mutations go
// through the Store and emit an audit record... the hook must exist")
// without any consumer in the core — the dashboard reads it back.
//
// Modeled on the teacher's internal/security/audit.go AuditTrail type:
// a thin wrapper around a database handle with a single write path.
package audit

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/ids"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        string
	Namespace string
	Key       string
	OldValue  string
	NewValue  string
	UpdatedBy string
	At        time.Time
}

// Trail appends entries to the audit_entries table.
type Trail struct {
	db *sql.DB
}

// New builds a Trail over an already-open writer connection.
func New(db *sql.DB) *Trail {
	return &Trail{db: db}
}

// Record writes one audit entry. Failures are returned, not swallowed:
// callers decide whether a broken audit trail should block the mutation
// it accompanies (the config write path does not — see store/config.go).
func (t *Trail) Record(e Entry) error {
	if e.ID == "" {
		e.ID = ids.New(ids.AuditEntr)
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := t.db.Exec(
		`INSERT INTO audit_entries (ID, Namespace, Key, OldValue, NewValue, UpdatedBy, At) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Namespace, e.Key, e.OldValue, e.NewValue, e.UpdatedBy, e.At,
	)
	if err != nil {
		return errors.Wrap(err, "record audit entry")
	}
	return nil
}
