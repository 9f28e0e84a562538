// internal/handlers/friend.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// AddFriendHandler handles a user sending a friend request to another user.
//
// Request payload: { "friend_id": "some-uuid-string" }
// We store a row in the friends table with status='pending'.
func (s *Server) AddFriendHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	friendUUID, err := uuid.Parse(req.FriendID)
	if err != nil {
		http.Error(w, "invalid friend_id", http.StatusBadRequest)
		return
	}

	if userUUID == friendUUID {
		http.Error(w, "cannot friend yourself", http.StatusBadRequest)
		return
	}

	if err := s.DB.InsertFriendRequest(r.Context(), userUUID, friendUUID); err != nil {
		http.Error(w, fmt.Sprintf("failed to insert friend request: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("friend request sent"))
}

// AcceptFriendHandler handles a user accepting a friend request sent to them.
//
// Request payload: { "friend_id": "some-uuid-string" }
func (s *Server) AcceptFriendHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	friendUUID, err := uuid.Parse(req.FriendID)
	if err != nil {
		http.Error(w, "invalid friend_id", http.StatusBadRequest)
		return
	}

	// The original request direction is friend -> user.
	if err := s.DB.AcceptFriend(r.Context(), friendUUID, userUUID); err != nil {
		http.Error(w, fmt.Sprintf("failed to accept friend request: %v", err), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("friend request accepted"))
}

// ListFriendsHandler returns every friend relation for the caller, pending
// included.
func (s *Server) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	friends, err := s.DB.ListFriends(r.Context(), userUUID)
	if err != nil {
		http.Error(w, "failed to list friends", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, friends)
}

// RemoveFriendHandler deletes the relation in either direction.
//
// Request payload: { "friend_id": "some-uuid-string" }
func (s *Server) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	userUUID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	friendUUID, err := uuid.Parse(req.FriendID)
	if err != nil {
		http.Error(w, "invalid friend_id", http.StatusBadRequest)
		return
	}

	if err := s.DB.RemoveFriend(r.Context(), userUUID, friendUUID); err != nil {
		http.Error(w, "failed to remove friend", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("friend removed"))
}
