// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/squadup/squadup/internal/models"
)

// CreateUserHandler registers a new account.
//
// Request payload: { "email": "...", "password": "...", "username": "..." }
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if u.Email == "" || u.Password == "" || u.Username == "" {
		http.Error(w, "email, password, and username are required", http.StatusBadRequest)
		return
	}

	if err := s.DB.CreateUser(r.Context(), &u); err != nil {
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	u.Password = ""
	writeJSON(w, http.StatusCreated, u)
}

// LoginHandler verifies credentials and sets the session cookie.
//
// Request payload: { "email": "...", "password": "..." }
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	token, err := s.DB.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("logged in"))
}
