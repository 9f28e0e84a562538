// internal/models/party.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PartyState tracks a party's lifecycle. Disbanded and stale parties are
// removed from the registry, so only Open and Full are ever observable.
type PartyState string

const (
	PartyOpen PartyState = "open"
	PartyFull PartyState = "full"
)

// Party is a joinable group of users scoped to one game and one tag
// combination. Members is ordered by join time; the first entry is the
// creator unless the creator has left.
type Party struct {
	ID        uuid.UUID   `json:"id"`
	GameID    uuid.UUID   `json:"game_id"`
	CreatorID uuid.UUID   `json:"creator_id"`
	CreatedAt time.Time   `json:"created_at"`
	Members   []uuid.UUID `json:"members"`
	MaxSize   int         `json:"max_size"`
	Tags      []Tag       `json:"tags"`
	State     PartyState  `json:"state"`

	// ChatroomCreated marks whether a chatroom has been provisioned for the
	// party by the (external) chat service.
	ChatroomCreated bool `json:"chatroom_created"`
}

// IsFull reports whether the party has reached its maximum size.
func (p *Party) IsFull() bool {
	return len(p.Members) == p.MaxSize
}

// IsStale reports whether the party is older than the staleness window
// relative to now.
func (p *Party) IsStale(now time.Time, window time.Duration) bool {
	return !p.CreatedAt.After(now.Add(-window))
}

// HasMember reports whether userID is currently a member.
func (p *Party) HasMember(userID uuid.UUID) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the registry.
func (p *Party) Clone() Party {
	cp := *p
	cp.Members = append([]uuid.UUID(nil), p.Members...)
	cp.Tags = append([]Tag(nil), p.Tags...)
	return cp
}

// PartyDTO is the wire form of a party as delivered by the external
// real-time snapshot source.
type PartyDTO struct {
	ID              uuid.UUID   `json:"id"`
	GameID          uuid.UUID   `json:"game_id"`
	CreatorID       uuid.UUID   `json:"creator_id"`
	CreatedAt       int64       `json:"created_at"` // unix seconds
	Members         []uuid.UUID `json:"members"`
	MaxSize         int         `json:"max_size"`
	Tags            []Tag       `json:"tags"`
	ChatroomCreated bool        `json:"chatroom_created"`
}

// ToParty converts the wire form into a registry party.
func (d PartyDTO) ToParty() Party {
	p := Party{
		ID:              d.ID,
		GameID:          d.GameID,
		CreatorID:       d.CreatorID,
		CreatedAt:       time.Unix(d.CreatedAt, 0),
		Members:         append([]uuid.UUID(nil), d.Members...),
		MaxSize:         d.MaxSize,
		Tags:            append([]Tag(nil), d.Tags...),
		ChatroomCreated: d.ChatroomCreated,
	}
	p.State = PartyOpen
	if p.IsFull() {
		p.State = PartyFull
	}
	return p
}
