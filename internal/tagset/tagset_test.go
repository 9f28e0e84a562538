// internal/tagset/tagset_test.go
package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/squadup/squadup/internal/models"
)

func tag(id, title string) models.Tag {
	return models.Tag{ID: id, Title: title, Type: models.TagTypeCustom}
}

func sizeTag(id, title string, size int) models.Tag {
	return models.Tag{ID: id, Title: title, Type: models.TagTypeTeamSize, Size: size}
}

func TestCanonicalKeyOrderIndependent(t *testing.T) {
	a := []models.Tag{tag("1", "PC"), tag("2", "Duo")}
	b := []models.Tag{tag("2", "Duo"), tag("1", "PC")}

	assert.Equal(t, CanonicalKey(a), CanonicalKey(b))
	assert.Equal(t, "1_2", CanonicalKey(a))
}

func TestCanonicalKeyExcludesSizeTags(t *testing.T) {
	tags := []models.Tag{tag("7", "EU"), sizeTag("3", "Duo", 2), tag("4", "Ranked")}

	key := CanonicalKey(tags)
	assert.Equal(t, "4_7", key)
	assert.NotContains(t, key, "3")
}

func TestCanonicalKeyEmptyIsGeneralLobby(t *testing.T) {
	assert.Equal(t, "", CanonicalKey(nil))
	assert.Equal(t, "", CanonicalKey([]models.Tag{sizeTag("3", "Duo", 2)}))
}

func TestCanonicalKeyFlattensNested(t *testing.T) {
	parent := tag("5", "Shooter")
	parent.Tags = []models.Tag{tag("9", "Battle Royale")}

	assert.Equal(t, "5_9", CanonicalKey([]models.Tag{parent}))
}

func TestEqualByTitle(t *testing.T) {
	a := []models.Tag{tag("1", "PC"), tag("2", "Duo")}
	b := []models.Tag{tag("2", "Duo"), tag("1", "PC")}
	c := []models.Tag{tag("1", "PC"), tag("2", "Trio")}

	assert.True(t, EqualByTitle(a, b))
	assert.False(t, EqualByTitle(a, c))
	assert.False(t, EqualByTitle(a, a[:1]))
}

// TestKeyAndTitleEqualityDiverge pins the intentional asymmetry between the
// grouping key (by identifier, size tags excluded) and title equality (by
// title, size tags included). Same titles with different identifiers compare
// equal by title but group under different keys.
func TestKeyAndTitleEqualityDiverge(t *testing.T) {
	a := []models.Tag{tag("1", "PC")}
	b := []models.Tag{tag("2", "PC")}

	assert.True(t, EqualByTitle(a, b))
	assert.NotEqual(t, CanonicalKey(a), CanonicalKey(b))

	// Size tags flip the comparison the other way: identical non-size
	// identifiers key together even when a size tag breaks title equality.
	c := []models.Tag{tag("1", "PC"), sizeTag("3", "Duo", 2)}
	assert.Equal(t, CanonicalKey(a), CanonicalKey(c))
	assert.False(t, EqualByTitle(a, c))
}
