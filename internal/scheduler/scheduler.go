// Package scheduler implements SparkQ's task state machine (spec §4.2):
// enqueue, claim (by queue or by task id), complete, fail and requeue. The
// synthetic auto-fail transition is not here: the reaper calls
// Store.AutoFail directly. It is stateless apart from the Store it wraps —
// every call is a single Store call.
package scheduler

import (
	"time"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// Scheduler brokers between producers and consumers over a Store.
type Scheduler struct {
	Store *store.Store
}

// New builds a Scheduler over an already-open Store.
func New(s *store.Store) *Scheduler {
	return &Scheduler{Store: s}
}

// Enqueue validates and inserts a new queued task.
func (s *Scheduler) Enqueue(in store.EnqueueInput) (*store.Task, error) {
	return s.Store.Enqueue(in)
}

// ClaimFromQueue atomically hands the oldest queued task in queueID to
// workerID. A nil, nil result means the queue had nothing to claim — not
// an error (spec §7).
func (s *Scheduler) ClaimFromQueue(queueID, workerID string) (*store.Task, error) {
	return s.Store.TryClaim(queueID, workerID, time.Now().UTC())
}

// ClaimByID claims a specific task by id, independent of its queue's FIFO
// head (spec §4.1/§9's per-task claim variant). Returns Conflict if the
// task isn't currently queued.
func (s *Scheduler) ClaimByID(taskID, workerID string) (*store.Task, error) {
	return s.Store.ClaimTaskByID(taskID, workerID, time.Now().UTC())
}

// Complete finalizes a running task as succeeded.
func (s *Scheduler) Complete(taskID, result, stdout, stderr string) (*store.Task, error) {
	return s.Store.FinalizeTask(taskID, store.OutcomeSucceeded, result, "", stdout, stderr, time.Now().UTC())
}

// Fail finalizes a running task as failed.
func (s *Scheduler) Fail(taskID, errMsg, stdout, stderr string) (*store.Task, error) {
	if errMsg == "" {
		return nil, store.Invalid("task.invalid", "error is required")
	}
	return s.Store.FinalizeTask(taskID, store.OutcomeFailed, "", errMsg, stdout, stderr, time.Now().UTC())
}

// Requeue resets a terminal task back to queued.
func (s *Scheduler) Requeue(taskID string) (*store.Task, error) {
	return s.Store.Requeue(taskID)
}
