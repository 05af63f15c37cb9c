package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"by_status"`
	ByWorkflow      map[string]int `json:"by_workflow"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
	TotalIterations int            `json:"total_iterations"`
	ActiveRuns      int            `json:"active_runs"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetRunStats(r.Context())
	if err != nil {
		s.logger.Error("get run stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Total:           stats.Total,
		ByStatus:        stats.CountByStatus,
		ByWorkflow:      stats.CountByWorkflow,
		AvgDurationMS:   stats.AvgDurationMS,
		TotalIterations: stats.TotalIterations,
		ActiveRuns:      s.engine.Active(),
	})
}
