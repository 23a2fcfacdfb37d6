package handlers

import (
	"net/http"
	"time"

	"pillscare/internal/api"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.HealthResponse{
			Status:     "healthy",
			Store:      s.StoreName,
			Uptime:     s.Metrics.Uptime().Round(time.Second).String(),
			ServerTime: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
