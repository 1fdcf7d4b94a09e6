package store

import "time"

// Project is the singleton container created on first run (spec §3).
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultProjectID is the well-known singleton project id (spec §3: "Singleton
// in practice (prj_default)").
const DefaultProjectID = "prj_default"

// SessionStatus enumerates Session.Status.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session groups queues (spec §3).
type Session struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	Name      string        `json:"name"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// QueueStatus enumerates the explicit (stored) half of Queue.Status; the
// derived half (active/planned/idle) is computed on read — see DerivedStatus.
type QueueStatus string

const (
	QueueArchived QueueStatus = "archived"
	QueueEnded    QueueStatus = "ended"
	QueueActive   QueueStatus = "active"
	QueuePlanned  QueueStatus = "planned"
	QueueIdle     QueueStatus = "idle"
)

// Queue is a FIFO of tasks within a Session (spec §3).
type Queue struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	Name         string     `json:"name"`
	Instructions string     `json:"instructions,omitempty"`
	ModelProfile string     `json:"model_profile,omitempty"`
	Archived     bool       `json:"-"`
	Ended        bool       `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	taskCounts   *taskCounts // populated by queries that compute derived status
}

type taskCounts struct {
	running int
	queued  int
}

// DerivedStatus computes Status per spec §3's rule: archived > ended >
// active (any running) > planned (any queued) > idle. Call it on a Queue
// returned by the Store so taskCounts is populated; on a bare struct
// literal it only sees the archived/ended flags and otherwise reports idle.
func (q *Queue) DerivedStatus() QueueStatus {
	if q.Archived {
		return QueueArchived
	}
	if q.Ended {
		return QueueEnded
	}
	if q.taskCounts != nil {
		if q.taskCounts.running > 0 {
			return QueueActive
		}
		if q.taskCounts.queued > 0 {
			return QueuePlanned
		}
	}
	return QueueIdle
}

// TaskStatus enumerates Task.Status (spec §4.2).
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is the atomic unit of work (spec §3).
type Task struct {
	ID             string     `json:"id"`
	QueueID        string     `json:"queue_id"`
	FriendlyCode   string     `json:"friendly_code"`
	ToolName       string     `json:"tool_name"`
	TaskClass      string     `json:"task_class"`
	Payload        string     `json:"payload"`
	Status         TaskStatus `json:"status"`
	TimeoutSeconds int        `json:"timeout_seconds"`
	Attempts       int        `json:"attempts"`
	Result         *string    `json:"result,omitempty"`
	Error          *string    `json:"error,omitempty"`
	Stdout         *string    `json:"stdout,omitempty"`
	Stderr         *string    `json:"stderr,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	StaleWarnedAt  *time.Time `json:"stale_warned_at,omitempty"`
	ClaimedBy      *string    `json:"claimed_by,omitempty"`
}

// TaskClass is a named timeout profile (spec §3).
type TaskClass struct {
	Name                  string `json:"name"`
	DefaultTimeoutSeconds int    `json:"default_timeout_seconds"`
	Description           string `json:"description,omitempty"`
}

// Tool is a named execution mode, metadata only (spec §3).
type Tool struct {
	Name        string `json:"name"`
	TaskClass   string `json:"task_class"`
	Description string `json:"description,omitempty"`
}

// ConfigEntry is a mutable runtime setting (spec §3).
type ConfigEntry struct {
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// StatsSummary backs GET /api/stats (spec §6.1, SPEC_FULL.md §4.1).
type StatsSummary struct {
	ByStatus  map[string]int `json:"by_status"`
	ByQueue   map[string]int `json:"by_queue"`
	BySession map[string]int `json:"by_session"`
	Total     int            `json:"total"`
}
