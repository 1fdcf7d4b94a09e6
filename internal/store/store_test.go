package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sparkq.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.EnsureDefaultProject(); err != nil {
		t.Fatalf("EnsureDefaultProject: %v", err)
	}
	return s
}

func newTestQueue(t *testing.T, s *Store) *Queue {
	t.Helper()
	sess, err := s.CreateSession("test-session")
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
	return q
}

func TestEnsureDefaultProject(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetProject(DefaultProjectID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.ID != DefaultProjectID {
		t.Errorf("expected %s, got %s", DefaultProjectID, p.ID)
	}

	// idempotent
	if _, err := s.EnsureDefaultProject(); err != nil {
		t.Fatalf("second EnsureDefaultProject: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateSession("alpha")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Status != SessionActive {
		t.Errorf("expected active, got %s", sess.Status)
	}

	newName := "beta"
	updated, err := s.UpdateSession(sess.ID, &newName)
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.Name != "beta" {
		t.Errorf("expected name beta, got %s", updated.Name)
	}

	ended, err := s.EndSession(sess.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if ended.Status != SessionEnded || ended.EndedAt == nil {
		t.Error("expected session to be ended with EndedAt set")
	}

	// ending twice is a no-op, not an error
	if _, err := s.EndSession(sess.ID); err != nil {
		t.Fatalf("second EndSession: %v", err)
	}

	if err := s.DeleteSession(sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.GetSession(sess.ID); err == nil {
		t.Error("expected session to be gone after delete")
	}
}

func TestQueueNameUniquenessAmongNonArchived(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.CreateSession("sess")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	q1, err := s.CreateQueue(sess.ID, "dup", "", "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	if _, err := s.CreateQueue(sess.ID, "dup", "", ""); err == nil {
		t.Fatal("expected duplicate queue name to be rejected")
	}

	if _, err := s.ArchiveQueue(q1.ID); err != nil {
		t.Fatalf("ArchiveQueue: %v", err)
	}
	// name is free again once the original is archived
	if _, err := s.CreateQueue(sess.ID, "dup", "", ""); err != nil {
		t.Fatalf("expected reuse of archived queue's name to succeed: %v", err)
	}
}

// TestDeleteSessionCascadesQueuesAndTasks matches spec §8 scenario S6:
// deleting a session removes its queues and every task in them.
func TestDeleteSessionCascadesQueuesAndTasks(t *testing.T) {
	s := newTestStore(t)
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

	var taskIDs []string
	for i := 0; i < 3; i++ {
		task, err := s.Enqueue(EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
		if err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
		taskIDs = append(taskIDs, task.ID)
	}

	if err := s.DeleteSession(sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	if _, err := s.GetSession(sess.ID); err == nil {
		t.Error("expected session to be gone after delete")
	}
	if _, err := s.GetQueue(q.ID); err == nil {
		t.Error("expected queue to be gone after session delete")
	}
	for _, id := range taskIDs {
		if _, err := s.GetTask(id); err == nil {
			t.Errorf("expected task %s to be gone after session delete", id)
		}
	}
}

func TestQueueDerivedStatus(t *testing.T) {
	s := newTestStore(t)
	q := newTestQueue(t, s)

	fresh, err := s.GetQueue(q.ID)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if fresh.DerivedStatus() != QueueIdle {
		t.Errorf("expected idle, got %s", fresh.DerivedStatus())
	}

	task, err := s.Enqueue(EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{"n":1}`})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	planned, err := s.GetQueue(q.ID)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if planned.DerivedStatus() != QueuePlanned {
		t.Errorf("expected planned, got %s", planned.DerivedStatus())
	}

	if _, err := s.TryClaim(q.ID, "worker-1", time.Now().UTC()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	active, err := s.GetQueue(q.ID)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if active.DerivedStatus() != QueueActive {
		t.Errorf("expected active, got %s", active.DerivedStatus())
	}

	if _, err := s.EndQueue(q.ID); err != nil {
		t.Fatalf("EndQueue: %v", err)
	}
	ended, err := s.GetQueue(q.ID)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if ended.DerivedStatus() != QueueEnded {
		t.Errorf("expected ended even with a running task, got %s", ended.DerivedStatus())
	}
	_ = task
}
