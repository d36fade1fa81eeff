// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/the-line/internal/access"
	"github.com/the-line/internal/broadcast"
	"github.com/the-line/internal/database"
	"github.com/the-line/internal/engine"
	"github.com/the-line/internal/notify"
	"github.com/the-line/internal/server/middleware"
)

// Directory is the part of the store holding users and organizations.
type Directory interface {
	ListOrganizations(ctx context.Context) ([]database.Organization, error)
	OrganizationExists(ctx context.Context, orgID int64) (bool, error)
	UpsertUser(ctx context.Context, userID int64, name, phone string) error
	PhoneOf(ctx context.Context, userID int64) (string, bool, error)
	GetUser(ctx context.Context, userID int64) (*database.User, error)
	RecentBroadcasts(ctx context.Context, limit int, adminID int64) ([]database.BroadcastRecord, error)
}

// Deps are the services behind the HTTP gateway. Hub and Gatherer are optional.
type Deps struct {
	Engine    *engine.Engine
	Directory Directory
	Access    *access.Checker
	Broadcast *broadcast.Service
	Hub       *notify.WebSocketHub
	Gatherer  prometheus.Gatherer
	// Ping checks the durable store for the health endpoint.
	Ping func(ctx context.Context) error
	// Token is the shared gateway secret. Empty disables the check.
	Token string
}

// Server exposes queue operations over HTTP.
type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	return &Server{deps: deps}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	admin := RequireAdmin(s.deps.Access)

	mux.HandleFunc("GET /api/v1/health", s.HandleHealth)
	mux.HandleFunc("GET /api/v1/organizations", s.HandleListOrganizations)
	mux.HandleFunc("POST /api/v1/users", s.HandleUpsertUser)

	mux.HandleFunc("POST /api/v1/orgs/{org}/join", s.HandleJoin)
	mux.HandleFunc("POST /api/v1/orgs/{org}/leave", s.HandleLeave)
	mux.HandleFunc("GET /api/v1/orgs/{org}/position", s.HandlePosition)
	mux.HandleFunc("GET /api/v1/orgs/{org}/queue", s.HandleView)
	mux.HandleFunc("GET /api/v1/orgs/{org}/stats", s.HandleStats)

	mux.Handle("POST /api/v1/orgs/{org}/next", admin(http.HandlerFunc(s.HandleNext)))
	mux.Handle("POST /api/v1/orgs/{org}/clear", admin(http.HandlerFunc(s.HandleClear)))
	mux.Handle("POST /api/v1/orgs/{org}/broadcast", admin(http.HandlerFunc(s.HandleBroadcast)))
	mux.Handle("POST /api/v1/queue/clear", admin(http.HandlerFunc(s.HandleClearAll)))
	mux.Handle("GET /api/v1/users/{user}/history", admin(http.HandlerFunc(s.HandleHistory)))
	mux.Handle("GET /api/v1/broadcasts", admin(http.HandlerFunc(s.HandleBroadcastAudit)))
	mux.Handle("GET /api/v1/logs/stream", admin(http.HandlerFunc(HandleLogStream)))

	if s.deps.Hub != nil {
		mux.HandleFunc("GET /api/v1/ws", s.deps.Hub.HandleWebSocket)
	}
	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	var h http.Handler = mux
	if s.deps.Token != "" {
		h = RequireToken(s.deps.Token)(mux)
	}
	return middleware.TrafficLogger(h)
}
