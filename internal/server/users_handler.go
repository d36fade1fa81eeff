// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/the-line/internal/database"
	"github.com/the-line/internal/logger"
)

type upsertUserRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// HandleUpsertUser handles POST /api/v1/users. Front-ends call it when a user
// shares their contact.
func (s *Server) HandleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.ID == 0 || req.Name == "" || req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "id, name and phone_number are required")
		return
	}

	if err := s.deps.Directory.UpsertUser(r.Context(), req.ID, req.Name, req.PhoneNumber); err != nil {
		logger.Errorf("HandleUpsertUser: userId=%d: %v", req.ID, err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": req.ID, "name": req.Name})
}

// HandleListOrganizations handles GET /api/v1/organizations
func (s *Server) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.deps.Directory.ListOrganizations(r.Context())
	if err != nil {
		logger.Errorf("HandleListOrganizations: %v", err)
		orgs = nil
	}
	if orgs == nil {
		orgs = []database.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

// HandleHistory handles GET /api/v1/users/{user}/history
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": s.deps.Engine.History(r.Context(), userID)})
}
