package store

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/ids"
)

// EnqueueInput carries the caller-supplied fields for Enqueue.
type EnqueueInput struct {
	QueueID        string
	ToolName       string
	TaskClass      string
	Payload        string
	TimeoutSeconds int // 0 means "resolve from task class"
}

// Enqueue validates and inserts a new queued task (spec §4.2 "Enqueue" row).
func (s *Store) Enqueue(in EnqueueInput) (*Task, error) {
	q, err := s.GetQueue(in.QueueID)
	if err != nil {
		return nil, err
	}
	if q.Archived || q.Ended {
		return nil, Conflict("queue.unavailable", "queue is archived or ended")
	}

	tool, err := s.GetTool(in.ToolName)
	if err != nil {
		return nil, err
	}

	taskClass := in.TaskClass
	if taskClass == "" {
		taskClass = tool.TaskClass
	}
	tc, err := s.GetTaskClass(taskClass)
	if err != nil {
		return nil, err
	}

	if in.Payload == "" || !json.Valid([]byte(in.Payload)) {
		return nil, Invalid("task.invalid_payload", "payload must be valid JSON")
	}

	timeout := in.TimeoutSeconds
	if timeout <= 0 {
		timeout = tc.DefaultTimeoutSeconds
	}
	if timeout <= 0 {
		return nil, Invalid("task.invalid_timeout", "timeout_seconds must be positive and no default is configured")
	}

	task := &Task{
		ID:             ids.New(ids.Task),
		QueueID:        in.QueueID,
		ToolName:       in.ToolName,
		TaskClass:      taskClass,
		Payload:        in.Payload,
		Status:         TaskQueued,
		TimeoutSeconds: timeout,
		CreatedAt:      time.Now().UTC(),
	}

	const maxCodeAttempts = 8
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		task.FriendlyCode = ids.FriendlyCode(q.Name)
		_, err = s.writer.Exec(
			`INSERT INTO tasks (ID, QueueID, FriendlyCode, ToolName, TaskClass, Payload, Status, TimeoutSeconds, Attempts, CreatedAt)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			task.ID, task.QueueID, task.FriendlyCode, task.ToolName, task.TaskClass, task.Payload, task.Status, task.TimeoutSeconds, task.CreatedAt,
		)
		if err == nil {
			return task, nil
		}
		if !isUniqueConstraintErr(err) {
			return nil, Internal(errors.Wrap(err, "insert task"))
		}
		// friendly-code collision within the queue: retry with a new suffix.
	}
	return nil, Internal(errors.New("exhausted friendly code generation attempts"))
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

const taskCols = `ID, QueueID, FriendlyCode, ToolName, TaskClass, Payload, Status, TimeoutSeconds, Attempts, Result, Error, Stdout, Stderr, CreatedAt, ClaimedAt, FinishedAt, StaleWarnedAt, ClaimedBy`

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	t := &Task{}
	var result, errField, stdout, stderr, claimedBy sql.NullString
	var claimedAt, finishedAt, staleWarnedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.QueueID, &t.FriendlyCode, &t.ToolName, &t.TaskClass, &t.Payload, &t.Status, &t.TimeoutSeconds, &t.Attempts,
		&result, &errField, &stdout, &stderr, &t.CreatedAt, &claimedAt, &finishedAt, &staleWarnedAt, &claimedBy,
	)
	if err != nil {
		return nil, err
	}
	if result.Valid {
		t.Result = &result.String
	}
	if errField.Valid {
		t.Error = &errField.String
	}
	if stdout.Valid {
		t.Stdout = &stdout.String
	}
	if stderr.Valid {
		t.Stderr = &stderr.String
	}
	if claimedAt.Valid {
		t.ClaimedAt = &claimedAt.Time
	}
	if finishedAt.Valid {
		t.FinishedAt = &finishedAt.Time
	}
	if staleWarnedAt.Valid {
		t.StaleWarnedAt = &staleWarnedAt.Time
	}
	if claimedBy.Valid {
		t.ClaimedBy = &claimedBy.String
	}
	return t, nil
}

// GetTask returns a Task by id.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.reader.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE ID = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("task", id)
		}
		return nil, Internal(err)
	}
	return t, nil
}

// ListTasksFilter narrows ListTasks.
type ListTasksFilter struct {
	QueueID string
	Status  string
	Limit   int
	Offset  int
}

// ListTasks returns tasks newest-first (CreatedAt DESC, then ID DESC) for
// browsing; FIFO order applies only to claiming, not to this listing.
func (s *Store) ListTasks(f ListTasksFilter) ([]*Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE 1=1`
	var args []any
	if f.QueueID != "" {
		query += ` AND QueueID = ?`
		args = append(args, f.QueueID)
	}
	if f.Status != "" {
		query += ` AND Status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY CreatedAt DESC, ID DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.reader.Query(query, args...)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, Internal(err)
		}
		out = append(out, t)
	}
	return out, Internal(rows.Err())
}

// NextQueuedForQueue returns the oldest queued task for a queue without
// mutating it (spec §4.1).
func (s *Store) NextQueuedForQueue(queueID string) (*Task, error) {
	row := s.reader.QueryRow(
		`SELECT `+taskCols+` FROM tasks WHERE QueueID = ? AND Status = 'queued' ORDER BY CreatedAt ASC, ID ASC LIMIT 1`,
		queueID,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, Internal(err)
	}
	return t, nil
}

// TryClaim atomically transitions the oldest queued task in queueID to
// running (spec §4.1). Returns (nil, nil) if the queue has no queued
// task — that is not an error (spec §7).
//
// The writer handle is a single-connection pool (store.go), so
// database/sql itself serializes every call here onto one SQLite
// connection; the WHERE Status = 'queued' guard on the UPDATE plus a
// rows-affected check is kept anyway as defense in depth rather than
// application-level per-row iteration (spec §9 forbids the latter).
func (s *Store) TryClaim(queueID, workerID string, now time.Time) (*Task, error) {
	if _, err := s.GetQueue(queueID); err != nil {
		return nil, err
	}

	const maxRaceRetries = 5
	for attempt := 0; attempt < maxRaceRetries; attempt++ {
		candidate, err := s.NextQueuedForQueue(queueID)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, nil
		}

		res, err := s.writer.Exec(
			`UPDATE tasks SET Status = 'running', ClaimedAt = ?, ClaimedBy = ?, Attempts = Attempts + 1
			 WHERE ID = ? AND Status = 'queued'`,
			now, workerID, candidate.ID,
		)
		if err != nil {
			return nil, Internal(errors.Wrap(err, "claim task"))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, Internal(err)
		}
		if n == 1 {
			return s.GetTask(candidate.ID)
		}
		// Lost the race to another claimer; try the new head of the queue.
	}
	return nil, wrapErr(KindUnavailable, "task.claim_contention", "too many concurrent claim attempts on this queue", nil)
}

// ClaimTaskByID atomically claims a specific task by id, independent of
// its queue's FIFO head (spec §4.1/§9's per-task claim variant: "claim by
// id, independent of queue head"). It is the caller's responsibility to
// know which task it wants; unlike TryClaim this bypasses ordering
// entirely, so callers that need FIFO semantics should use TryClaim
// against the queue instead. Refuses with Conflict if the task isn't
// currently queued.
func (s *Store) ClaimTaskByID(taskID, workerID string, now time.Time) (*Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != TaskQueued {
		return nil, Conflict("task.wrong_state", "task is not queued")
	}

	res, err := s.writer.Exec(
		`UPDATE tasks SET Status = 'running', ClaimedAt = ?, ClaimedBy = ?, Attempts = Attempts + 1
		 WHERE ID = ? AND Status = 'queued'`,
		now, workerID, taskID,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "claim task by id"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, Internal(err)
	}
	if n == 0 {
		return nil, Conflict("task.wrong_state", "task is not queued")
	}
	return s.GetTask(taskID)
}

// FinalizeOutcome is the terminal state Complete/Fail move a task to.
type FinalizeOutcome string

const (
	OutcomeSucceeded FinalizeOutcome = "succeeded"
	OutcomeFailed    FinalizeOutcome = "failed"
)

// FinalizeTask transitions a running task to succeeded or failed (spec §4.1).
// Refuses if the task's current status isn't "running".
func (s *Store) FinalizeTask(taskID string, outcome FinalizeOutcome, result, errMsg, stdout, stderr string, finishedAt time.Time) (*Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != TaskRunning {
		return nil, Conflict("task.wrong_state", "task is not running")
	}

	var resultVal, errVal any
	if outcome == OutcomeSucceeded {
		resultVal = result
	} else {
		errVal = errMsg
	}

	res, err := s.writer.Exec(
		`UPDATE tasks SET Status = ?, Result = ?, Error = ?, Stdout = ?, Stderr = ?, FinishedAt = ?
		 WHERE ID = ? AND Status = 'running'`,
		string(outcome), resultVal, errVal, nullableString(stdout), nullableString(stderr), finishedAt, taskID,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "finalize task"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, Conflict("task.wrong_state", "task is not running")
	}
	return s.GetTask(taskID)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Requeue resets a terminal task back to queued, preserving Attempts
// (spec §4.1). Requires the current status to be succeeded or failed.
func (s *Store) Requeue(taskID string) (*Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != TaskSucceeded && task.Status != TaskFailed {
		return nil, Conflict("task.wrong_state", "task is not in a terminal state")
	}

	res, err := s.writer.Exec(
		`UPDATE tasks SET Status = 'queued', ClaimedAt = NULL, ClaimedBy = NULL, FinishedAt = NULL,
		 StaleWarnedAt = NULL, Result = NULL, Error = NULL
		 WHERE ID = ? AND Status IN ('succeeded', 'failed')`,
		taskID,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "requeue task"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, Conflict("task.wrong_state", "task is not in a terminal state")
	}
	return s.GetTask(taskID)
}

// DeleteTask removes a task; it has no effect on its queue (spec §8.12).
func (s *Store) DeleteTask(id string) error {
	if _, err := s.GetTask(id); err != nil {
		return err
	}
	if _, err := s.writer.Exec(`DELETE FROM tasks WHERE ID = ?`, id); err != nil {
		return Internal(errors.Wrap(err, "delete task"))
	}
	return nil
}

// StaleCandidates returns running tasks past 2x their timeout (spec §4.1).
func (s *Store) StaleCandidates(now time.Time) ([]*Task, error) {
	rows, err := s.reader.Query(
		`SELECT `+taskCols+` FROM tasks
		 WHERE Status = 'running' AND ClaimedAt IS NOT NULL
		   AND (julianday(?) - julianday(ClaimedAt)) * 86400.0 >= TimeoutSeconds * 2`,
		now,
	)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, Internal(err)
		}
		out = append(out, t)
	}
	return out, Internal(rows.Err())
}

// WarnCandidates returns running tasks between 1x and 2x their timeout
// that have not yet been stamped (advisory only, spec §9).
func (s *Store) WarnCandidates(now time.Time) ([]*Task, error) {
	rows, err := s.reader.Query(
		`SELECT `+taskCols+` FROM tasks
		 WHERE Status = 'running' AND ClaimedAt IS NOT NULL AND StaleWarnedAt IS NULL
		   AND (julianday(?) - julianday(ClaimedAt)) * 86400.0 >= TimeoutSeconds
		   AND (julianday(?) - julianday(ClaimedAt)) * 86400.0 < TimeoutSeconds * 2`,
		now, now,
	)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, Internal(err)
		}
		out = append(out, t)
	}
	return out, Internal(rows.Err())
}

// AutoFail transitions a running task to failed with the synthetic
// auto-fail error, preserving its original ClaimedAt (spec §4.2, §4.3).
func (s *Store) AutoFail(taskID string, finishedAt time.Time) error {
	const syntheticError = "auto-failed after timeout × 2"
	res, err := s.writer.Exec(
		`UPDATE tasks SET Status = 'failed', Error = ?, FinishedAt = ? WHERE ID = ? AND Status = 'running'`,
		syntheticError, finishedAt, taskID,
	)
	if err != nil {
		return Internal(errors.Wrap(err, "auto-fail task"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Conflict("task.wrong_state", "task is no longer running")
	}
	return nil
}

// StampStaleWarning sets StaleWarnedAt once, advisory only (spec §9).
func (s *Store) StampStaleWarning(taskID string, at time.Time) error {
	_, err := s.writer.Exec(`UPDATE tasks SET StaleWarnedAt = ? WHERE ID = ? AND StaleWarnedAt IS NULL`, at, taskID)
	if err != nil {
		return Internal(errors.Wrap(err, "stamp stale warning"))
	}
	return nil
}

// PurgeTerminal deletes terminal tasks finished before cutoff, chunked to
// at most chunkSize rows per call so reapers never hold the write lock
// for an unbounded batch (spec §4.1, §4.3). Returns rows deleted.
func (s *Store) PurgeTerminal(cutoff time.Time, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	res, err := s.writer.Exec(
		`DELETE FROM tasks WHERE ID IN (
			SELECT ID FROM tasks
			WHERE Status IN ('succeeded', 'failed') AND FinishedAt IS NOT NULL AND FinishedAt < ?
			LIMIT ?
		)`,
		cutoff, chunkSize,
	)
	if err != nil {
		return 0, Internal(errors.Wrap(err, "purge terminal tasks"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Internal(err)
	}
	return int(n), nil
}
