package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/config"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/scheduler"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

func newTestServer(t *testing.T) *Server {
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
	if _, err := s.UpsertTaskClass("standard", 60, ""); err != nil {
		t.Fatalf("UpsertTaskClass: %v", err)
	}
	if _, err := s.UpsertTool("echo", "standard", ""); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}

	cfg := config.Defaults()
	resolver := config.NewResolver(s, cfg)
	srv := New(s, scheduler.New(s), resolver, "test", "test-build", nil)
	t.Cleanup(func() { srv.limiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionQueueTaskHappyPath(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", createSessionRequest{Name: "sess-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sess store.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/queues", createQueueRequest{SessionID: sess.ID, Name: "q-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create queue: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var q queueView
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if q.Status != "idle" {
		t.Errorf("expected idle status, got %s", q.Status)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks", enqueueRequest{QueueID: q.ID, ToolName: "echo", Payload: `{"x":1}`})
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue task: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var task store.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/queues/"+q.ID+"/claim", claimRequest{WorkerID: "worker-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks/"+task.ID+"/complete", completeRequest{Result: "ok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClaimOnEmptyQueueReturns204(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", createSessionRequest{Name: "sess"})
	var sess store.Session
	json.Unmarshal(rec.Body.Bytes(), &sess)

	rec = doJSON(t, srv, http.MethodPost, "/api/queues", createQueueRequest{SessionID: sess.ID, Name: "q"})
	var q queueView
	json.Unmarshal(rec.Body.Bytes(), &q)

	rec = doJSON(t, srv, http.MethodPost, "/api/queues/"+q.ID+"/claim", claimRequest{WorkerID: "worker-1"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on an empty queue, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClaimTaskByID(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", createSessionRequest{Name: "sess"})
	var sess store.Session
	json.Unmarshal(rec.Body.Bytes(), &sess)

	rec = doJSON(t, srv, http.MethodPost, "/api/queues", createQueueRequest{SessionID: sess.ID, Name: "q"})
	var q queueView
	json.Unmarshal(rec.Body.Bytes(), &q)

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks", enqueueRequest{QueueID: q.ID, ToolName: "echo", Payload: `{}`})
	var task store.Task
	json.Unmarshal(rec.Body.Bytes(), &task)

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks/"+task.ID+"/claim", claimRequest{WorkerID: "worker-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim by id: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var claimed store.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &claimed); err != nil {
		t.Fatalf("decode claimed task: %v", err)
	}
	if claimed.Status != store.TaskRunning {
		t.Fatalf("expected task running after claim, got %s", claimed.Status)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks/"+task.ID+"/claim", claimRequest{WorkerID: "worker-2"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 re-claiming a running task, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNotFoundMapsTo404(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/sessions/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDuplicateQueueNameMapsTo409(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", createSessionRequest{Name: "sess"})
	var sess store.Session
	json.Unmarshal(rec.Body.Bytes(), &sess)

	if rec := doJSON(t, srv, http.MethodPost, "/api/queues", createQueueRequest{SessionID: sess.ID, Name: "dup"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected first create to succeed, got %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/queues", createQueueRequest{SessionID: sess.ID, Name: "dup"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate queue name, got %d: %s", rec.Code, rec.Body.String())
	}
}
