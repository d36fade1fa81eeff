// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"
	"strconv"

	"github.com/the-line/internal/database"
	"github.com/the-line/internal/logger"
)

// HandleBroadcastAudit handles GET /api/v1/broadcasts. ?limit= caps the
// number of records and ?admin_id= filters by sender.
func (s *Server) HandleBroadcastAudit(w http.ResponseWriter, r *http.Request) {
	limit := database.DefaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var adminID int64
	if raw := r.URL.Query().Get("admin_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid admin_id")
			return
		}
		adminID = id
	}

	records, err := s.deps.Directory.RecentBroadcasts(r.Context(), limit, adminID)
	if err != nil {
		logger.Errorf("HandleBroadcastAudit: %v", err)
		writeInternal(w)
		return
	}
	if records == nil {
		records = []database.BroadcastRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"broadcasts": records,
		"count":      len(records),
	})
}
