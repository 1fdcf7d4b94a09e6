package reaper

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *store.Queue) {
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
	if _, err := s.UpsertTaskClass("fast", 1, ""); err != nil {
		t.Fatalf("UpsertTaskClass: %v", err)
	}
	if _, err := s.UpsertTool("echo", "fast", ""); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}
	q, err := s.CreateQueue(sess.ID, "work", "", "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	return s, q
}

// TestAutoFailWarnWindowThenTickLeavesTaskRunning checks that a task sits
// in the advisory warn window at 1.5x its timeout, and that a tick driven
// at the current time (well under 1x) leaves it running. The past-2x
// auto-fail is covered by TestAutoFailTickFailsPastDoubleTimeout.
func TestAutoFailWarnWindowThenTickLeavesTaskRunning(t *testing.T) {
	s, q := newTestStore(t)
	af := NewAutoFail(s, time.Hour) // interval irrelevant; we drive Tick directly

	task, err := s.Enqueue(store.EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := s.TryClaim(q.ID, "worker-1", time.Now().UTC()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	warnWindow, err := s.WarnCandidates(time.Now().UTC().Add(1500 * time.Millisecond))
	if err != nil {
		t.Fatalf("WarnCandidates: %v", err)
	}
	if len(warnWindow) != 1 {
		t.Fatalf("expected task to be in the warn window at 1.5x timeout, got %d candidates", len(warnWindow))
	}

	if err := af.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	stillRunning, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if stillRunning.Status != store.TaskRunning {
		t.Fatalf("expected task to still be running after a tick at current time, got %s", stillRunning.Status)
	}
}

func TestAutoFailTickFailsPastDoubleTimeout(t *testing.T) {
	s, q := newTestStore(t)
	af := NewAutoFail(s, time.Hour)

	task, err := s.Enqueue(store.EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := s.TryClaim(q.ID, "worker-1", time.Now().UTC().Add(-3*time.Second)); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	if err := af.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	failed, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if failed.Status != store.TaskFailed {
		t.Fatalf("expected task to be auto-failed, got %s", failed.Status)
	}
}

func TestPurgeTickDeletesInChunksUntilDry(t *testing.T) {
	s, q := newTestStore(t)
	p := NewPurge(s, time.Hour, 0, 2) // chunkSize=2, retention default (3d)

	for i := 0; i < 5; i++ {
		task, err := s.Enqueue(store.EnqueueInput{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
		if err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
		claimed, err := s.TryClaim(q.ID, "w", time.Now().UTC())
		if err != nil {
			t.Fatalf("TryClaim %d: %v", i, err)
		}
		finishedAt := time.Now().UTC().AddDate(0, 0, -10)
		if _, err := s.FinalizeTask(claimed.ID, store.OutcomeSucceeded, "ok", "", "", "", finishedAt); err != nil {
			t.Fatalf("FinalizeTask %d: %v", i, err)
		}
		_ = task
	}

	if err := p.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	remaining, err := s.ListTasks(store.ListTasksFilter{QueueID: q.ID})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected the chunked tick to drain every eligible task, %d remain", len(remaining))
	}
}

func TestAutoFailStartStopIsClean(t *testing.T) {
	s, _ := newTestStore(t)
	af := NewAutoFail(s, 10*time.Millisecond)
	af.Start()
	time.Sleep(30 * time.Millisecond)
	af.Stop()
}
