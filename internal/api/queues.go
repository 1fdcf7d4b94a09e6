package api

import (
	"net/http"
	"time"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/metrics"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// queueView adds the derived status (spec §3) that store.Queue itself
// doesn't serialize, since computing it requires a query the bare
// struct can't run on its own.
type queueView struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions,omitempty"`
	ModelProfile string    `json:"model_profile,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toQueueView(q *store.Queue) queueView {
	return queueView{
		ID:           q.ID,
		SessionID:    q.SessionID,
		Name:         q.Name,
		Instructions: q.Instructions,
		ModelProfile: q.ModelProfile,
		Status:       string(q.DerivedStatus()),
		CreatedAt:    q.CreatedAt,
	}
}

type createQueueRequest struct {
	SessionID    string `json:"session_id"`
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	ModelProfile string `json:"model_profile"`
}

type updateQueueRequest struct {
	Instructions *string `json:"instructions"`
	ModelProfile *string `json:"model_profile"`
}

func (s *Server) handleCreateQueue(w http.ResponseWriter, r *http.Request) {
	var req createQueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "queue.malformed"})
		return
	}
	q, err := s.Store.CreateQueue(req.SessionID, req.Name, req.Instructions, req.ModelProfile)
	if err != nil {
		writeError(w, err)
		return
	}
	full, err := s.Store.GetQueue(q.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQueueView(full))
}

func (s *Server) handleListQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.Store.ListQueues(r.URL.Query().Get("session_id"), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]queueView, 0, len(queues))
	for _, q := range queues {
		views = append(views, toQueueView(q))
	}
	writeJSON(w, http.StatusOK, map[string][]queueView{"queues": views})
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	q, err := s.Store.GetQueue(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueView(q))
}

func (s *Server) handleUpdateQueue(w http.ResponseWriter, r *http.Request) {
	var req updateQueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "queue.malformed"})
		return
	}
	q, err := s.Store.UpdateQueue(r.PathValue("id"), req.Instructions, req.ModelProfile)
	if err != nil {
		writeError(w, err)
		return
	}
	full, err := s.Store.GetQueue(q.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueView(full))
}

func (s *Server) handleEndQueue(w http.ResponseWriter, r *http.Request) {
	q, err := s.Store.EndQueue(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueView(q))
}

func (s *Server) handleArchiveQueue(w http.ResponseWriter, r *http.Request) {
	q, err := s.Store.ArchiveQueue(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueView(q))
}

func (s *Server) handleUnarchiveQueue(w http.ResponseWriter, r *http.Request) {
	q, err := s.Store.UnarchiveQueue(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueView(q))
}

func (s *Server) handleDeleteQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteQueue(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type claimRequest struct {
	WorkerID string `json:"worker_id"`
}

// handleClaimFromQueue implements the per-queue claim endpoint (spec
// §4.1, §7, §6.1 "claim-by-queue convenience"). A body-less 204 means
// the queue had nothing to claim — not an error.
func (s *Server) handleClaimFromQueue(w http.ResponseWriter, r *http.Request) {
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
	task, err := s.Scheduler.ClaimFromQueue(r.PathValue("id"), req.WorkerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNoContent, nil)
		return
	}
	metrics.TasksClaimed.Inc()
	writeJSON(w, http.StatusOK, task)
}
