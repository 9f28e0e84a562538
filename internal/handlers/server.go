// internal/handlers/server.go

// Package handlers exposes the service over HTTP and WebSocket: party
// create/join/leave, lobby views, followed tag groups, friends, and users.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/auth"
	"github.com/squadup/squadup/internal/database"
	"github.com/squadup/squadup/internal/lobby"
	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/presence"
	"github.com/squadup/squadup/internal/registry"
)

// commandTimeout bounds every registry round trip issued by a handler.
const commandTimeout = 5 * time.Second

// Server holds the dependencies every handler needs. Everything is passed in
// explicitly; there are no package-level singletons.
type Server struct {
	Log      *logrus.Logger
	Registry *registry.Registry
	Agg      *lobby.Aggregator
	Presence *presence.Store
	DB       *database.Store
	Hub      *Hub
}

// NewServer wires a handler server over its collaborators. DB and Presence
// may be nil in tests; handlers that need them fail with 503.
func NewServer(log *logrus.Logger, reg *registry.Registry, agg *lobby.Aggregator, pres *presence.Store, db *database.Store, hub *Hub) *Server {
	return &Server{
		Log:      log,
		Registry: reg,
		Agg:      agg,
		Presence: pres,
		DB:       db,
		Hub:      hub,
	}
}

// commandCtx derives the bounded context used for registry commands.
func commandCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), commandTimeout)
}

// authenticatedUser extracts and verifies the auth_token cookie, returning
// the caller's user id.
func authenticatedUser(r *http.Request) (uuid.UUID, error) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		return uuid.Nil, fmt.Errorf("missing auth_token")
	}
	token := extractCookieToken(cookieHeader, "auth_token")

	userIDStr, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id in token: %w", err)
	}
	return userID, nil
}

// ensureUser authenticates the request, creating an ephemeral guest account
// when no valid token is present and a database is available. The new
// session cookie is set on the response.
func (s *Server) ensureUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if userID, err := authenticatedUser(r); err == nil {
		return userID, nil
	}
	if s.DB == nil {
		return uuid.Nil, fmt.Errorf("authentication required")
	}

	guest := models.User{Username: "Guest", IsEphemeral: true}
	if err := s.DB.CreateUser(r.Context(), &guest); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral user: %w", err)
	}
	token, err := auth.CreateJWT(guest.ID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return guest.ID, nil
}
