// internal/handlers/follow.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/squadup/squadup/internal/models"
)

type followRequest struct {
	GameID uuid.UUID    `json:"game_id"`
	Tags   []models.Tag `json:"tags"`
}

// FollowTagsHandler persists a tag combination the caller wants to keep an
// eye on.
//
// Request payload: { "game_id": "...", "tags": [...] }
func (s *Server) FollowTagsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.GameID == uuid.Nil || len(req.Tags) == 0 {
		http.Error(w, "missing game_id or tags", http.StatusBadRequest)
		return
	}

	group := models.FollowedTagGroup{
		OwnerID: userID,
		GameID:  req.GameID,
		Tags:    req.Tags,
	}
	if err := s.DB.InsertFollowedTagGroup(r.Context(), &group); err != nil {
		http.Error(w, fmt.Sprintf("failed to follow tags: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

type unfollowRequest struct {
	FollowID uuid.UUID `json:"follow_id"`
}

// UnfollowTagsHandler destroys a followed tag group owned by the caller.
func (s *Server) UnfollowTagsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var req unfollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := s.DB.DeleteFollowedTagGroup(r.Context(), userID, req.FollowID); err != nil {
		http.Error(w, "followed tag group not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("unfollowed"))
}

// ListFollowedHandler returns the caller's followed tag groups with the
// active users under each one resolved at read time.
func (s *Server) ListFollowedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	groups, err := s.DB.ListFollowedTagGroups(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list followed tags", http.StatusInternalServerError)
		return
	}

	ctx, cancel := commandCtx(r)
	defer cancel()
	for i := range groups {
		users, err := s.Agg.ActiveUsers(ctx, groups[i].GameID, groups[i].Tags, 0)
		if err != nil {
			// Presence is best effort; the follow itself is still returned.
			s.Log.Warnf("failed to resolve active users for follow %s: %v", groups[i].ID, err)
			continue
		}
		groups[i].ActiveUsers = users
	}
	if groups == nil {
		groups = []models.FollowedTagGroup{}
	}

	writeJSON(w, http.StatusOK, groups)
}
