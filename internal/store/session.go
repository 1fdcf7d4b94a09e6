package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/ids"
)

// CreateSession inserts a new active Session under the default project.
func (s *Store) CreateSession(name string) (*Session, error) {
	if name == "" {
		return nil, Invalid("session.invalid", "name is required")
	}
	sess := &Session{
		ID:        ids.New(ids.Session),
		ProjectID: DefaultProjectID,
		Name:      name,
		Status:    SessionActive,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.writer.Exec(
		`INSERT INTO sessions (ID, ProjectID, Name, Status, StartedAt) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectID, sess.Name, sess.Status, sess.StartedAt,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "insert session"))
	}
	return sess, nil
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.Name, &sess.Status, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		sess.EndedAt = &ended.Time
	}
	return sess, nil
}

const sessionCols = `ID, ProjectID, Name, Status, StartedAt, EndedAt`

// GetSession returns a Session by id.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.reader.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE ID = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("session", id)
		}
		return nil, Internal(err)
	}
	return sess, nil
}

// ListSessions returns every session, newest first.
func (s *Store) ListSessions() ([]*Session, error) {
	rows, err := s.reader.Query(`SELECT ` + sessionCols + ` FROM sessions ORDER BY StartedAt DESC`)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, Internal(err)
		}
		out = append(out, sess)
	}
	return out, Internal(rows.Err())
}

// UpdateSession applies a partial update (name only — status changes go
// through EndSession, the only documented mutation per spec §6.1).
func (s *Store) UpdateSession(id string, name *string) (*Session, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if name != nil && *name != "" {
		sess.Name = *name
	}
	if _, err := s.writer.Exec(`UPDATE sessions SET Name = ? WHERE ID = ?`, sess.Name, sess.ID); err != nil {
		return nil, Internal(errors.Wrap(err, "update session"))
	}
	return sess, nil
}

// EndSession marks a session ended. Ending a session does not affect its
// existing queues (spec §3: "ended is terminal for new-queue creation but
// not for existing queues").
func (s *Store) EndSession(id string) (*Session, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if sess.Status == SessionEnded {
		return sess, nil
	}
	now := time.Now().UTC()
	if _, err := s.writer.Exec(`UPDATE sessions SET Status = ?, EndedAt = ? WHERE ID = ?`, SessionEnded, now, sess.ID); err != nil {
		return nil, Internal(errors.Wrap(err, "end session"))
	}
	sess.Status = SessionEnded
	sess.EndedAt = &now
	return sess, nil
}

// DeleteSession cascades to its queues and tasks (invariant 1, spec §3).
func (s *Store) DeleteSession(id string) error {
	if _, err := s.GetSession(id); err != nil {
		return err
	}

	tx, err := s.writer.Begin()
	if err != nil {
		return Internal(errors.Wrap(err, "begin delete session"))
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE QueueID IN (SELECT ID FROM queues WHERE SessionID = ?)`, id); err != nil {
		return Internal(errors.Wrap(err, "delete session tasks"))
	}
	if _, err := tx.Exec(`DELETE FROM queues WHERE SessionID = ?`, id); err != nil {
		return Internal(errors.Wrap(err, "delete session queues"))
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE ID = ?`, id); err != nil {
		return Internal(errors.Wrap(err, "delete session"))
	}
	if err := tx.Commit(); err != nil {
		return Internal(errors.Wrap(err, "commit delete session"))
	}
	return nil
}
