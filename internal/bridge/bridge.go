// internal/bridge/bridge.go

// Package bridge is the only contract the registry requires from an external
// real-time party store. Sources deliver full-replacement snapshots, never
// deltas; transport failures travel on an error side channel and must not
// disturb the last known good state.
package bridge

import (
	"sync"

	"github.com/google/uuid"

	"github.com/squadup/squadup/internal/models"
)

// UpdateFunc receives a full-replacement snapshot of a game's parties.
type UpdateFunc func(dtos []models.PartyDTO)

// ErrorFunc is the side channel for transport failures. Receivers are
// expected to log and keep their last snapshot.
type ErrorFunc func(gameID uuid.UUID, err error)

// Source is a real-time feed of party snapshots.
type Source interface {
	// SubscribeGameParties starts delivering snapshots for gameID to
	// onUpdate until the returned subscription is cancelled.
	SubscribeGameParties(gameID uuid.UUID, onUpdate UpdateFunc) (Subscription, error)
}

// Subscription is a handle to one live subscription.
type Subscription interface {
	// Unsubscribe stops delivery. It is idempotent, and no onUpdate call
	// happens after it returns.
	Unsubscribe()
}

// MemorySource is an in-process Source, used by tests and as the default
// source when no upstream feed is configured. Publish fans a snapshot out to
// every subscriber of the game synchronously.
type MemorySource struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*memorySubscription]UpdateFunc
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		subs: make(map[uuid.UUID]map[*memorySubscription]UpdateFunc),
	}
}

// SubscribeGameParties registers onUpdate for gameID snapshots.
func (s *MemorySource) SubscribeGameParties(gameID uuid.UUID, onUpdate UpdateFunc) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &memorySubscription{source: s, gameID: gameID}
	g, ok := s.subs[gameID]
	if !ok {
		g = make(map[*memorySubscription]UpdateFunc)
		s.subs[gameID] = g
	}
	g[sub] = onUpdate
	return sub, nil
}

// Publish delivers a snapshot to every subscriber of gameID. Delivery happens
// under the source lock, so Unsubscribe returning guarantees no further
// callbacks.
func (s *MemorySource) Publish(gameID uuid.UUID, dtos []models.PartyDTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, onUpdate := range s.subs[gameID] {
		onUpdate(dtos)
	}
}

type memorySubscription struct {
	source *MemorySource
	gameID uuid.UUID
	once   sync.Once
}

func (sub *memorySubscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.source.mu.Lock()
		defer sub.source.mu.Unlock()
		g := sub.source.subs[sub.gameID]
		delete(g, sub)
		if len(g) == 0 {
			delete(sub.source.subs, sub.gameID)
		}
	})
}
