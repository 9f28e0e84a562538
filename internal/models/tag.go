// internal/models/tag.go
package models

// TagType categorizes a tag. Lobby identity treats all types the same except
// team-size tags, which carry a non-zero Size and are excluded from grouping.
type TagType string

const (
	TagTypeTeamSize      TagType = "team_size"
	TagTypeDevice        TagType = "device"
	TagTypeGameMode      TagType = "game_mode"
	TagTypeLocation      TagType = "location"
	TagTypeSkill         TagType = "skill"
	TagTypeCommunication TagType = "communication"
	TagTypeSpectrum      TagType = "spectrum"
	TagTypePersonality   TagType = "personality"
	TagTypeCustom        TagType = "custom"
)

// Tag is a labeled attribute (platform, game mode, team size, ...) used to
// categorize parties and lobbies. Tags are immutable value types once parsed.
type Tag struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Type     TagType `json:"type"`
	Priority int     `json:"priority"`

	// Size is non-zero only for team-size tags and denotes the desired party
	// size. Size tags never participate in lobby identity.
	Size int `json:"size,omitempty"`

	// Tags holds optional nested tags (e.g. a game-mode tag carrying its
	// sub-modes). Nested tags are flattened before grouping.
	Tags []Tag `json:"tags,omitempty"`
}

// IsSizeTag reports whether the tag denotes a desired party size.
func (t Tag) IsSizeTag() bool {
	return t.Size != 0
}
