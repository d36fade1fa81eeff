// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/the-line/internal/access"
	"github.com/the-line/internal/logger"
)

// RequireAdmin creates a middleware that lets only administrators through.
// The flag is looked up on every request.
func RequireAdmin(checker *access.Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := callerID(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if !checker.IsAdmin(r.Context(), userID) {
				logger.Warnf("RequireAdmin: userId=%d denied %s %s", userID, r.Method, r.URL.Path)
				writeError(w, http.StatusForbidden, "This action is available to administrators only.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenExempt paths stay reachable without the gateway token.
var tokenExempt = map[string]bool{"/api/v1/health": true}

// RequireToken rejects requests that do not carry the shared gateway token,
// either as "Authorization: Bearer <token>" or, for websocket clients that
// cannot set headers, as ?token=. Caller identity headers are only trusted
// behind this check.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenExempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if presented == "" {
				presented = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				logger.Warnf("RequireToken: rejected %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "invalid or missing gateway token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
