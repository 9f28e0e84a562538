// internal/handlers/hub.go
package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/lobby"
	"github.com/squadup/squadup/internal/models"
)

// Hub fans lobby updates out to websocket subscribers. The registry's
// OnChange callback marks a game dirty without blocking; the hub's own
// goroutine rebuilds the lobby view and broadcasts it.
type Hub struct {
	log *logrus.Logger
	agg *lobby.Aggregator

	mu   sync.Mutex
	subs map[uuid.UUID]map[*LobbySubscriber]struct{}

	dirty  chan uuid.UUID
	closed chan struct{}
}

// LobbySubscriber is one websocket client's view of a game's lobbies.
type LobbySubscriber struct {
	GameID uuid.UUID
	Out    chan []models.Lobby
	hub    *Hub
	once   sync.Once
}

// NewHub creates a Hub and starts its broadcast goroutine.
func NewHub(log *logrus.Logger, agg *lobby.Aggregator) *Hub {
	h := &Hub{
		log:    log,
		agg:    agg,
		subs:   make(map[uuid.UUID]map[*LobbySubscriber]struct{}),
		dirty:  make(chan uuid.UUID, 64),
		closed: make(chan struct{}),
	}
	go h.run()
	return h
}

// Close stops the broadcast goroutine.
func (h *Hub) Close() {
	select {
	case <-h.closed:
	default:
		close(h.closed)
	}
}

// Notify marks a game's lobbies dirty. Safe to call from the registry actor;
// never blocks. A dropped mark is recovered by the next change.
func (h *Hub) Notify(gameID uuid.UUID) {
	select {
	case h.dirty <- gameID:
	default:
	}
}

// Subscribe registers a new subscriber for a game and immediately queues a
// refresh so the client gets the current view.
func (h *Hub) Subscribe(gameID uuid.UUID) *LobbySubscriber {
	sub := &LobbySubscriber{
		GameID: gameID,
		Out:    make(chan []models.Lobby, 4),
		hub:    h,
	}
	h.mu.Lock()
	g, ok := h.subs[gameID]
	if !ok {
		g = make(map[*LobbySubscriber]struct{})
		h.subs[gameID] = g
	}
	g[sub] = struct{}{}
	h.mu.Unlock()

	h.Notify(gameID)
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Idempotent.
func (sub *LobbySubscriber) Unsubscribe() {
	sub.once.Do(func() {
		h := sub.hub
		h.mu.Lock()
		if g, ok := h.subs[sub.GameID]; ok {
			delete(g, sub)
			if len(g) == 0 {
				delete(h.subs, sub.GameID)
			}
		}
		h.mu.Unlock()
		close(sub.Out)
	})
}

func (h *Hub) run() {
	for {
		select {
		case gameID := <-h.dirty:
			h.broadcast(gameID)
		case <-h.closed:
			return
		}
	}
}

func (h *Hub) broadcast(gameID uuid.UUID) {
	h.mu.Lock()
	hasSubs := len(h.subs[gameID]) > 0
	h.mu.Unlock()
	if !hasSubs {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	lobbies, err := h.agg.LobbiesForGame(ctx, gameID)
	cancel()
	if err != nil {
		h.log.WithField("game", gameID).Warnf("failed to build lobby view: %v", err)
		return
	}

	view := make([]models.Lobby, 0, len(lobbies))
	for _, l := range lobbies {
		view = append(view, l)
	}
	sort.Slice(view, func(i, j int) bool { return view[i].Key < view[j].Key })

	h.mu.Lock()
	for sub := range h.subs[gameID] {
		select {
		case sub.Out <- view:
		default:
			// Slow consumer; it will catch up on the next change.
			h.log.WithField("game", gameID).Warn("dropped lobby update for slow subscriber")
		}
	}
	h.mu.Unlock()
}
