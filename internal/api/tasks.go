package api

import (
	"net/http"
	"strconv"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/metrics"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

type enqueueRequest struct {
	QueueID        string `json:"queue_id"`
	ToolName       string `json:"tool_name"`
	TaskClass      string `json:"task_class"`
	Payload        string `json:"payload"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (s *Server) handleEnqueueTask(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "task.malformed"})
		return
	}
	task, err := s.Scheduler.Enqueue(store.EnqueueInput{
		QueueID:        req.QueueID,
		ToolName:       req.ToolName,
		TaskClass:      req.TaskClass,
		Payload:        req.Payload,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.TasksEnqueued.Inc()
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListTasksFilter{
		QueueID: q.Get("queue_id"),
		Status:  q.Get("status"),
		Limit:   atoiDefault(q.Get("limit"), 0),
		Offset:  atoiDefault(q.Get("offset"), 0),
	}
	tasks, err := s.Store.ListTasks(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	writeJSON(w, http.StatusOK, map[string][]*store.Task{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.Store.GetTask(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type completeRequest struct {
	Result string `json:"result"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "task.malformed"})
		return
	}
	task, err := s.Scheduler.Complete(r.PathValue("id"), req.Result, req.Stdout, req.Stderr)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.TasksSucceeded.Inc()
	writeJSON(w, http.StatusOK, task)
}

type failRequest struct {
	Error  string `json:"error"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (s *Server) handleFailTask(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "task.malformed"})
		return
	}
	task, err := s.Scheduler.Fail(r.PathValue("id"), req.Error, req.Stdout, req.Stderr)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.TasksFailed.Inc()
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleRequeueTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.Scheduler.Requeue(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.TasksRequeued.Inc()
	writeJSON(w, http.StatusOK, task)
}

// handleClaimTask implements the per-task claim endpoint (spec §6.1, §9):
// claims the task by id, independent of its queue's FIFO head. A task
// that isn't currently queued surfaces as a 409 via writeError.
func (s *Server) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "claim.malformed"})
			return
		}
	}
	if req.WorkerID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "worker_id is required", Code: "claim.invalid"})
		return
	}
	task, err := s.Scheduler.ClaimByID(r.PathValue("id"), req.WorkerID)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.TasksClaimed.Inc()
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteTask(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
