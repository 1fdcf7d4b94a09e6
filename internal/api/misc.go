package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// healthStatus is spec §6.1's literal health-check shape.
type healthStatus struct {
	Status  string `json:"status"`
	BuildID string `json:"build_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.GetProject(store.DefaultProjectID); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthStatus{Status: "unhealthy", BuildID: s.BuildID})
		return
	}
	writeJSON(w, http.StatusOK, healthStatus{Status: "ok", BuildID: s.BuildID})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.Version})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleMetrics exposes the process's Prometheus registry (SPEC_FULL.md
// §4.4); it is additive to spec.md and carries no scheduling semantics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
