package api

import (
	"net/http"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

type upsertTaskClassRequest struct {
	DefaultTimeoutSeconds int    `json:"default_timeout_seconds"`
	Description           string `json:"description"`
}

func (s *Server) handleListTaskClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := s.Store.ListTaskClasses()
	if err != nil {
		writeError(w, err)
		return
	}
	if classes == nil {
		classes = []*store.TaskClass{}
	}
	writeJSON(w, http.StatusOK, map[string][]*store.TaskClass{"task_classes": classes})
}

func (s *Server) handleUpsertTaskClass(w http.ResponseWriter, r *http.Request) {
	var req upsertTaskClassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "task_class.malformed"})
		return
	}
	tc, err := s.Store.UpsertTaskClass(r.PathValue("name"), req.DefaultTimeoutSeconds, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (s *Server) handleDeleteTaskClass(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteTaskClass(r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type upsertToolRequest struct {
	TaskClass   string `json:"task_class"`
	Description string `json:"description"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.Store.ListTools()
	if err != nil {
		writeError(w, err)
		return
	}
	if tools == nil {
		tools = []*store.Tool{}
	}
	writeJSON(w, http.StatusOK, map[string][]*store.Tool{"tools": tools})
}

func (s *Server) handleUpsertTool(w http.ResponseWriter, r *http.Request) {
	var req upsertToolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "tool.malformed"})
		return
	}
	tool, err := s.Store.UpsertTool(r.PathValue("name"), req.TaskClass, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteTool(r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
