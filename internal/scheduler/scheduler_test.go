package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store, *store.Queue) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sparkq.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.EnsureDefaultProject(); err != nil {
		t.Fatalf("EnsureDefaultProject: %v", err)
	}
	sess, err := s.CreateSession("sess")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := s.UpsertTaskClass("standard", 60, ""); err != nil {
		t.Fatalf("UpsertTaskClass: %v", err)
	}
	if _, err := s.UpsertTool("echo", "standard", ""); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}
	q, err := s.CreateQueue(sess.ID, "work", "", "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	return New(s), s, q
}

// TestS1EnqueueClaimComplete walks the happy-path state machine:
// queued -> running -> succeeded.
func TestS1EnqueueClaimComplete(t *testing.T) {
	sch, _, q := newTestScheduler(t)

	task, err := sch.Enqueue(store.EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if task.Status != store.TaskQueued {
		t.Fatalf("expected queued, got %s", task.Status)
	}

	claimed, err := sch.ClaimFromQueue(q.ID, "worker-1")
	if err != nil {
		t.Fatalf("ClaimFromQueue: %v", err)
	}
	if claimed == nil || claimed.ID != task.ID {
		t.Fatal("expected to claim the enqueued task")
	}

	done, err := sch.Complete(claimed.ID, "result", "stdout", "")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != store.TaskSucceeded {
		t.Errorf("expected succeeded, got %s", done.Status)
	}
}

// TestS2FailThenRequeue checks failed -> queued -> running again, with
// attempts accumulating rather than resetting.
func TestS2FailThenRequeue(t *testing.T) {
	sch, _, q := newTestScheduler(t)

	task, err := sch.Enqueue(store.EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	claimed, err := sch.ClaimFromQueue(q.ID, "worker-1")
	if err != nil {
		t.Fatalf("ClaimFromQueue: %v", err)
	}
	failed, err := sch.Fail(claimed.ID, "exploded", "", "stderr")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if failed.Status != store.TaskFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}

	requeued, err := sch.Requeue(task.ID)
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if requeued.Status != store.TaskQueued {
		t.Fatalf("expected queued, got %s", requeued.Status)
	}

	reclaimed, err := sch.ClaimFromQueue(q.ID, "worker-2")
	if err != nil {
		t.Fatalf("ClaimFromQueue after requeue: %v", err)
	}
	if reclaimed.Attempts != 2 {
		t.Errorf("expected attempts to accumulate across requeue to 2, got %d", reclaimed.Attempts)
	}
}

// TestS3FailRequiresErrorMessage checks the scheduler-level validation
// that sits in front of the store's own state check.
func TestS3FailRequiresErrorMessage(t *testing.T) {
	sch, _, q := newTestScheduler(t)

	task, err := sch.Enqueue(store.EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	claimed, err := sch.ClaimFromQueue(q.ID, "worker-1")
	if err != nil {
		t.Fatalf("ClaimFromQueue: %v", err)
	}
	if claimed.ID != task.ID {
		t.Fatal("claimed wrong task")
	}
	if _, err := sch.Fail(claimed.ID, "", "", ""); err == nil {
		t.Error("expected Fail with an empty error message to be rejected")
	}
}

// TestS4ClaimOnEmptyQueueIsNilNotError matches spec §7's contract.
func TestS4ClaimOnEmptyQueueIsNilNotError(t *testing.T) {
	sch, _, q := newTestScheduler(t)
	task, err := sch.ClaimFromQueue(q.ID, "worker-1")
	if err != nil {
		t.Fatalf("expected no error on an empty queue, got %v", err)
	}
	if task != nil {
		t.Error("expected nil task on an empty queue")
	}
}
