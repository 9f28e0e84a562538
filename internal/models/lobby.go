// internal/models/lobby.go
package models

import "github.com/google/uuid"

// Lobby is the aggregate view of all activity for one (game, tag-group key)
// pair: the live parties sharing that key plus the users currently active
// under it. Lobbies are derived on demand and never stored.
type Lobby struct {
	GameID      uuid.UUID   `json:"game_id"`
	Key         string      `json:"key"`
	Parties     []Party     `json:"parties"`
	ActiveUsers []uuid.UUID `json:"active_users"`
}

// FollowedTagGroup is a tag combination a user has opted to follow for a
// game, persisted for quick re-display. ActiveUsers is resolved at read time
// and never persisted.
type FollowedTagGroup struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	GameID      uuid.UUID   `json:"game_id"`
	Tags        []Tag       `json:"tags"`
	ActiveUsers []uuid.UUID `json:"active_users,omitempty"`
}
