package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/ids"
)

// CreateQueue inserts a new active Queue. Name must be unique among
// non-archived queues in the session (spec §3); the session must exist and
// must not be ended.
func (s *Store) CreateQueue(sessionID, name, instructions, modelProfile string) (*Queue, error) {
	if name == "" {
		return nil, Invalid("queue.invalid", "name is required")
	}
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == SessionEnded {
		return nil, Conflict("queue.session_ended", "session is ended; no new queues can be created in it")
	}

	var existing int
	err = s.reader.QueryRow(
		`SELECT COUNT(*) FROM queues WHERE SessionID = ? AND Name = ? AND Archived = 0`,
		sessionID, name,
	).Scan(&existing)
	if err != nil {
		return nil, Internal(err)
	}
	if existing > 0 {
		return nil, Conflict("queue.duplicate_name", "a non-archived queue with this name already exists in the session")
	}

	q := &Queue{
		ID:           ids.New(ids.Queue),
		SessionID:    sessionID,
		Name:         name,
		Instructions: instructions,
		ModelProfile: modelProfile,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = s.writer.Exec(
		`INSERT INTO queues (ID, SessionID, Name, Instructions, ModelProfile, CreatedAt) VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.SessionID, q.Name, q.Instructions, q.ModelProfile, q.CreatedAt,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "insert queue"))
	}
	return q, nil
}

func scanQueue(row interface{ Scan(...any) error }) (*Queue, error) {
	q := &Queue{}
	var instructions, modelProfile sql.NullString
	var archived, ended int
	if err := row.Scan(&q.ID, &q.SessionID, &q.Name, &instructions, &modelProfile, &archived, &ended, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Instructions = instructions.String
	q.ModelProfile = modelProfile.String
	q.Archived = archived != 0
	q.Ended = ended != 0
	return q, nil
}

const queueCols = `ID, SessionID, Name, Instructions, ModelProfile, Archived, Ended, CreatedAt`

// GetQueue returns a Queue by id with its derived status populated.
func (s *Store) GetQueue(id string) (*Queue, error) {
	row := s.reader.QueryRow(`SELECT `+queueCols+` FROM queues WHERE ID = ?`, id)
	q, err := scanQueue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("queue", id)
		}
		return nil, Internal(err)
	}
	if err := s.populateDerivedStatus(q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListQueues filters by sessionID and/or derived status, both optional.
func (s *Store) ListQueues(sessionID, status string) ([]*Queue, error) {
	query := `SELECT ` + queueCols + ` FROM queues WHERE 1=1`
	var args []any
	if sessionID != "" {
		query += ` AND SessionID = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY CreatedAt DESC`

	rows, err := s.reader.Query(query, args...)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, Internal(err)
		}
		if err := s.populateDerivedStatus(q); err != nil {
			return nil, err
		}
		if status == "" || string(q.DerivedStatus()) == status {
			out = append(out, q)
		}
	}
	return out, Internal(rows.Err())
}

func (s *Store) populateDerivedStatus(q *Queue) error {
	if q.Archived || q.Ended {
		q.taskCounts = &taskCounts{}
		return nil
	}
	var running, queued int
	err := s.reader.QueryRow(
		`SELECT
			(SELECT COUNT(*) FROM tasks WHERE QueueID = ? AND Status = 'running'),
			(SELECT COUNT(*) FROM tasks WHERE QueueID = ? AND Status = 'queued')`,
		q.ID, q.ID,
	).Scan(&running, &queued)
	if err != nil {
		return Internal(err)
	}
	q.taskCounts = &taskCounts{running: running, queued: queued}
	return nil
}

// UpdateQueue applies a partial update to the mutable queue fields.
func (s *Store) UpdateQueue(id string, instructions, modelProfile *string) (*Queue, error) {
	q, err := s.GetQueue(id)
	if err != nil {
		return nil, err
	}
	if instructions != nil {
		q.Instructions = *instructions
	}
	if modelProfile != nil {
		q.ModelProfile = *modelProfile
	}
	_, err = s.writer.Exec(`UPDATE queues SET Instructions = ?, ModelProfile = ? WHERE ID = ?`, q.Instructions, q.ModelProfile, q.ID)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "update queue"))
	}
	return q, nil
}

// EndQueue marks a queue ended.
func (s *Store) EndQueue(id string) (*Queue, error) {
	return s.setQueueFlag(id, "Ended", true)
}

// ArchiveQueue marks a queue archived, freeing its name for reuse.
func (s *Store) ArchiveQueue(id string) (*Queue, error) {
	return s.setQueueFlag(id, "Archived", true)
}

// UnarchiveQueue clears the archived flag, subject to the name still
// being free among non-archived queues in the session.
func (s *Store) UnarchiveQueue(id string) (*Queue, error) {
	q, err := s.GetQueue(id)
	if err != nil {
		return nil, err
	}
	var existing int
	err = s.reader.QueryRow(
		`SELECT COUNT(*) FROM queues WHERE SessionID = ? AND Name = ? AND Archived = 0 AND ID != ?`,
		q.SessionID, q.Name, q.ID,
	).Scan(&existing)
	if err != nil {
		return nil, Internal(err)
	}
	if existing > 0 {
		return nil, Conflict("queue.duplicate_name", "another non-archived queue already uses this name")
	}
	return s.setQueueFlag(id, "Archived", false)
}

func (s *Store) setQueueFlag(id, column string, value bool) (*Queue, error) {
	q, err := s.GetQueue(id)
	if err != nil {
		return nil, err
	}
	v := 0
	if value {
		v = 1
	}
	_, err = s.writer.Exec(`UPDATE queues SET `+column+` = ? WHERE ID = ?`, v, id)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "update queue flag"))
	}
	return s.GetQueue(id)
}

// DeleteQueue cascades to its tasks (invariant 1, spec §3); the queue's
// parent session is unaffected.
func (s *Store) DeleteQueue(id string) error {
	if _, err := s.GetQueue(id); err != nil {
		return err
	}
	tx, err := s.writer.Begin()
	if err != nil {
		return Internal(errors.Wrap(err, "begin delete queue"))
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE QueueID = ?`, id); err != nil {
		return Internal(errors.Wrap(err, "delete queue tasks"))
	}
	if _, err := tx.Exec(`DELETE FROM queues WHERE ID = ?`, id); err != nil {
		return Internal(errors.Wrap(err, "delete queue"))
	}
	if err := tx.Commit(); err != nil {
		return Internal(errors.Wrap(err, "commit delete queue"))
	}
	return nil
}
