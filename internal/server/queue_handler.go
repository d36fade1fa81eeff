// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/the-line/internal/broadcast"
	"github.com/the-line/internal/logger"
)

const (
	// textNoPhone asks the caller to share a contact before joining.
	textNoPhone = "Please share your phone number before joining a queue."
	textNoOrg   = "Organization not found."
)

// HandleJoin handles POST /api/v1/orgs/{org}/join
func (s *Server) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, orgID, ok := s.callerAndOrg(w, r)
	if !ok {
		return
	}

	exists, err := s.deps.Directory.OrganizationExists(r.Context(), orgID)
	if err != nil {
		logger.Errorf("HandleJoin: orgId=%d lookup: %v", orgID, err)
		writeInternal(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, textNoOrg)
		return
	}

	_, hasPhone, err := s.deps.Directory.PhoneOf(r.Context(), userID)
	if err != nil {
		logger.Errorf("HandleJoin: userId=%d phone lookup: %v", userID, err)
		writeInternal(w)
		return
	}
	if !hasPhone {
		writeError(w, http.StatusForbidden, textNoPhone)
		return
	}

	user, err := s.deps.Directory.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		logger.Errorf("HandleJoin: userId=%d user lookup: %v", userID, err)
		writeInternal(w)
		return
	}

	res := s.deps.Engine.Join(r.Context(), userID, user.Name, orgID)
	writeResult(w, res, res.Status)
}

// HandleLeave handles POST /api/v1/orgs/{org}/leave
func (s *Server) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, orgID, ok := s.callerAndOrg(w, r)
	if !ok {
		return
	}
	res := s.deps.Engine.Leave(r.Context(), userID, orgID)
	writeResult(w, res, res.Status)
}

// HandlePosition handles GET /api/v1/orgs/{org}/position. The user defaults
// to the caller and may be given with ?user_id=.
func (s *Server) HandlePosition(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathID(r, "org")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
	} else {
		userID, err = callerID(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Engine.Position(r.Context(), userID, orgID)
	writeResult(w, res, res.Status)
}

// HandleView handles GET /api/v1/orgs/{org}/queue
func (s *Server) HandleView(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathID(r, "org")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":    s.deps.Engine.View(r.Context(), orgID),
		"members": s.deps.Engine.Snapshot(orgID),
	})
}

// HandleStats handles GET /api/v1/orgs/{org}/stats
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathID(r, "org")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": s.deps.Engine.Stats(r.Context(), orgID)})
}

// HandleNext handles POST /api/v1/orgs/{org}/next
func (s *Server) HandleNext(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathID(r, "org")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := s.deps.Engine.Advance(r.Context(), orgID)
	writeResult(w, res, res.Status)
}

// HandleClear handles POST /api/v1/orgs/{org}/clear
func (s *Server) HandleClear(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathID(r, "org")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := s.deps.Engine.Clear(r.Context(), orgID)
	writeResult(w, res, res.Status)
}

// HandleClearAll handles POST /api/v1/queue/clear
func (s *Server) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Engine.ClearAll(r.Context())
	writeResult(w, res, res.Status)
}

type broadcastRequest struct {
	Text string `json:"text"`
}

// HandleBroadcast handles POST /api/v1/orgs/{org}/broadcast
func (s *Server) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	adminID, orgID, ok := s.callerAndOrg(w, r)
	if !ok {
		return
	}

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	adminName := "administrator"
	if user, err := s.deps.Directory.GetUser(r.Context(), adminID); err != nil {
		logger.Warnf("HandleBroadcast: adminId=%d user lookup: %v", adminID, err)
	} else if user != nil {
		adminName = user.Name
	}

	report, err := s.deps.Broadcast.Broadcast(r.Context(), adminID, adminName, req.Text, orgID)
	if errors.Is(err, broadcast.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "Message text is required.")
		return
	}
	if err != nil {
		logger.Errorf("HandleBroadcast: adminId=%d orgId=%d: %v", adminID, orgID, err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) callerAndOrg(w http.ResponseWriter, r *http.Request) (userID, orgID int64, ok bool) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return 0, 0, false
	}
	orgID, err = pathID(r, "org")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return userID, orgID, true
}
