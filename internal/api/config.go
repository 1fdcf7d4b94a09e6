package api

import (
	"net/http"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

type setConfigRequest struct {
	Value     string `json:"value"`
	UpdatedBy string `json:"updated_by"`
}

func (s *Server) handleListConfig(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Store.ListConfig(r.PathValue("namespace"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*store.ConfigEntry{}
	}
	writeJSON(w, http.StatusOK, map[string][]*store.ConfigEntry{"config_entries": entries})
}

// handleSetConfig writes a runtime override, making the database
// authoritative over the YAML file for this key from now on (spec §6.2).
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "config.malformed"})
		return
	}
	entry, err := s.Store.SetConfig(r.PathValue("namespace"), r.PathValue("key"), req.Value, req.UpdatedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
