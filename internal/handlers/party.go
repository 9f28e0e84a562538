// internal/handlers/party.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/squadup/squadup/internal/lobby"
	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/registry"
)

const maxPartySize = 16

type createPartyRequest struct {
	GameID  uuid.UUID    `json:"game_id"`
	Tags    []models.Tag `json:"tags"`
	MaxSize int          `json:"max_size"`
}

// CreatePartyHandler registers a new party owned by the caller.
//
// Request payload: { "game_id": "...", "tags": [...], "max_size": 4 }
func (s *Server) CreatePartyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req createPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad party request payload", http.StatusBadRequest)
		return
	}
	if req.GameID == uuid.Nil {
		http.Error(w, "missing game_id", http.StatusBadRequest)
		return
	}
	if req.MaxSize < 2 || req.MaxSize > maxPartySize {
		http.Error(w, "max_size out of range", http.StatusBadRequest)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	p, err := s.Registry.CreateParty(ctx, req.GameID, userID, req.Tags, req.MaxSize)
	if err != nil {
		http.Error(w, "failed to create party", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type partyActionRequest struct {
	PartyID uuid.UUID `json:"party_id"`
}

// JoinPartyHandler adds the caller to a party.
func (s *Server) JoinPartyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req partyActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	p, err := s.Registry.Join(ctx, req.PartyID, userID)
	if err != nil {
		writePartyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// LeavePartyHandler removes the caller from a party.
func (s *Server) LeavePartyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req partyActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	p, err := s.Registry.Leave(ctx, req.PartyID, userID)
	if err != nil {
		writePartyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// ListPartiesHandler returns a game's live parties, optionally filtered by
// membership: ?game=<uuid>&filter=all|joined|unjoined
func (s *Server) ListPartiesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(r.URL.Query().Get("game"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	mode := lobby.FilterMode(r.URL.Query().Get("filter"))
	switch mode {
	case "", lobby.FilterAll, lobby.FilterJoined, lobby.FilterUnjoined:
	default:
		http.Error(w, "invalid filter mode", http.StatusBadRequest)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	parties, err := s.Agg.PartiesForGame(ctx, gameID, mode, userID)
	if err != nil {
		http.Error(w, "failed to list parties", http.StatusInternalServerError)
		return
	}
	if parties == nil {
		parties = []models.Party{}
	}

	writeJSON(w, http.StatusOK, parties)
}

// LobbiesHandler returns the lobby aggregate for a game: parties grouped by
// tag key with active users attached. ?game=<uuid>
func (s *Server) LobbiesHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticatedUser(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(r.URL.Query().Get("game"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	lobbies, err := s.Agg.LobbiesForGame(ctx, gameID)
	if err != nil {
		http.Error(w, "failed to build lobbies", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, lobbies)
}

type activeUsersRequest struct {
	GameID uuid.UUID    `json:"game_id"`
	Tags   []models.Tag `json:"tags"`
	Limit  int          `json:"limit"`
}

// ActiveUsersHandler resolves the users currently active under a tag
// combination, in the order the presence feed received them.
func (s *Server) ActiveUsersHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticatedUser(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req activeUsersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	users, err := s.Agg.ActiveUsers(ctx, req.GameID, req.Tags, req.Limit)
	if err != nil {
		http.Error(w, "failed to resolve active users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []uuid.UUID{}
	}

	writeJSON(w, http.StatusOK, users)
}

// writePartyError maps registry sentinels onto HTTP statuses.
func writePartyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrPartyNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrPartyFull),
		errors.Is(err, registry.ErrAlreadyMember),
		errors.Is(err, registry.ErrNotMember):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "party operation failed", http.StatusInternalServerError)
	}
}
