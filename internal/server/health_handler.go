// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/the-line/internal/logger"
)

// HandleHealth handles GET /api/v1/health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "up",
		"version": "1.0",
		"loaded":  s.deps.Engine.Loaded(),
	}

	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			logger.Errorf("HandleHealth: store ping failed: %v", err)
			response["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	writeJSON(w, http.StatusOK, response)
}
