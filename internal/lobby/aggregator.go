// internal/lobby/aggregator.go

// Package lobby derives lobby views from the party registry and the presence
// store. A lobby is the aggregate of all activity for one (game, tag key)
// pair; it is computed on demand and never owns party state.
package lobby

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/tagset"
)

// PartySource supplies live-party snapshots, normally the registry.
type PartySource interface {
	SnapshotGame(ctx context.Context, gameID uuid.UUID) ([]models.Party, error)
}

// PresenceSource supplies the users currently active under a (game, tag key)
// pair, in the stable order the presence feed received them.
type PresenceSource interface {
	ActiveUsers(ctx context.Context, gameID uuid.UUID, key string, limit int) ([]uuid.UUID, error)
}

// FilterMode selects which parties Filter keeps relative to a viewer.
type FilterMode string

const (
	FilterAll      FilterMode = "all"
	FilterJoined   FilterMode = "joined"
	FilterUnjoined FilterMode = "unjoined"
)

// Aggregator groups parties and presence into lobby views.
type Aggregator struct {
	parties  PartySource
	presence PresenceSource
}

// NewAggregator returns an Aggregator over the given sources.
func NewAggregator(parties PartySource, presence PresenceSource) *Aggregator {
	return &Aggregator{parties: parties, presence: presence}
}

// LobbiesForGame groups every live party for a game by canonical tag key and
// attaches the active users for each key. The registry never hands out stale
// parties, so no age filtering happens here.
func (a *Aggregator) LobbiesForGame(ctx context.Context, gameID uuid.UUID) (map[string]models.Lobby, error) {
	parties, err := a.parties.SnapshotGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("snapshot parties for game %s: %w", gameID, err)
	}

	lobbies := make(map[string]models.Lobby)
	for _, p := range parties {
		key := tagset.CanonicalKey(p.Tags)
		l, ok := lobbies[key]
		if !ok {
			l = models.Lobby{GameID: gameID, Key: key}
		}
		l.Parties = append(l.Parties, p)
		lobbies[key] = l
	}

	if a.presence != nil {
		for key, l := range lobbies {
			users, err := a.presence.ActiveUsers(ctx, gameID, key, 0)
			if err != nil {
				// Presence is best effort; a lobby with no user list is
				// still a valid lobby.
				continue
			}
			l.ActiveUsers = users
			lobbies[key] = l
		}
	}
	return lobbies, nil
}

// ActiveUsers returns up to limit users active under the tag combination's
// canonical key, in the order the presence feed received them. limit <= 0
// means no truncation.
func (a *Aggregator) ActiveUsers(ctx context.Context, gameID uuid.UUID, tags []models.Tag, limit int) ([]uuid.UUID, error) {
	if a.presence == nil {
		return nil, nil
	}
	return a.presence.ActiveUsers(ctx, gameID, tagset.CanonicalKey(tags), limit)
}

// PartiesForGame returns a game's live parties filtered by mode relative to
// viewerID.
func (a *Aggregator) PartiesForGame(ctx context.Context, gameID uuid.UUID, mode FilterMode, viewerID uuid.UUID) ([]models.Party, error) {
	parties, err := a.parties.SnapshotGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return Filter(parties, mode, viewerID), nil
}

// Filter keeps the parties matching mode: joined keeps parties containing
// viewerID, unjoined keeps the complement, all keeps everything. Pure
// function over the snapshot.
func Filter(parties []models.Party, mode FilterMode, viewerID uuid.UUID) []models.Party {
	if mode == FilterAll || mode == "" {
		return parties
	}
	out := make([]models.Party, 0, len(parties))
	for _, p := range parties {
		joined := p.HasMember(viewerID)
		if (mode == FilterJoined && joined) || (mode == FilterUnjoined && !joined) {
			out = append(out, p)
		}
	}
	return out
}
