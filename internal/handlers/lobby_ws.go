// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/tagset"
)

// LobbyWSHandler streams lobby updates for one game over a websocket and
// accepts presence heartbeats from the client. URL: /lobby/ws/{game_id}.
func (s *Server) LobbyWSHandler(w http.ResponseWriter, r *http.Request) {
	gameIDStr := strings.TrimPrefix(r.URL.Path, "/lobby/ws/")
	gameID, err := uuid.Parse(strings.TrimSuffix(gameIDStr, "/"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"lobby"},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "lobby" {
		c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
		return
	}

	userID, err := s.ensureUser(w, r)
	if err != nil {
		s.Log.Warnf("user authentication failed for game %s: %v", gameID, err)
		c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
		return
	}

	sub := s.Hub.Subscribe(gameID)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.Log.Infof("User %v (%s) subscribed to game %v lobbies", userID, r.RemoteAddr, gameID)

	go s.lobbyWritePump(ctx, c, sub)
	s.lobbyReadPump(ctx, c, gameID, userID)

	s.Log.Infof("User %v lobby stream for game %v closed", userID, gameID)
}

// lobbyReadPump consumes client messages (presence heartbeats) until the
// connection closes.
func (s *Server) lobbyReadPump(ctx context.Context, c *websocket.Conn, gameID, userID uuid.UUID) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus != websocket.StatusNormalClosure &&
				closeStatus != websocket.StatusGoingAway &&
				!strings.Contains(err.Error(), "context canceled") {
				s.Log.Warnf("lobby ws read error for user %v: %v", userID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var packet struct {
			Type string       `json:"type"`
			Tags []models.Tag `json:"tags"`
		}
		if err := json.Unmarshal(data, &packet); err != nil {
			s.Log.Warnf("lobby ws invalid json from user %v: %v", userID, err)
			continue
		}

		switch packet.Type {
		case "heartbeat":
			if s.Presence == nil {
				continue
			}
			key := tagset.CanonicalKey(packet.Tags)
			hbCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			if err := s.Presence.Heartbeat(hbCtx, gameID, key, userID); err != nil {
				s.Log.Warnf("heartbeat failed for user %v: %v", userID, err)
			}
			cancel()
		default:
			s.Log.Warnf("lobby ws unknown action %q from user %v", packet.Type, userID)
		}
	}
}

// lobbyWritePump pushes lobby views to the client and pings periodically.
func (s *Server) lobbyWritePump(ctx context.Context, c *websocket.Conn, sub *LobbySubscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-sub.Out:
			if !ok {
				return
			}
			payload := map[string]interface{}{
				"type":    "lobby_update",
				"lobbies": view,
			}
			data, err := json.Marshal(payload)
			if err != nil {
				s.Log.Warnf("failed to marshal lobby update: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Log.Warnf("failed to write lobby update: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Log.Warnf("lobby ws ping failed: %v", err)
				return
			}
		}
	}
}
