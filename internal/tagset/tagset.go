// internal/tagset/tagset.go

// Package tagset derives canonical grouping keys from tag collections.
// A party's lobby identity is the set of its non-size tag identifiers,
// independent of order.
package tagset

import (
	"sort"
	"strings"

	"github.com/squadup/squadup/internal/models"
)

// Flatten expands nested tags into a single flat slice, depth-first, parents
// before children.
func Flatten(tags []models.Tag) []models.Tag {
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		nested := t.Tags
		t.Tags = nil
		out = append(out, t)
		if len(nested) > 0 {
			out = append(out, Flatten(nested)...)
		}
	}
	return out
}

// CanonicalKey returns the grouping key for a tag collection: the sorted,
// underscore-joined identifiers of all non-size tags, nested tags included.
// Two collections produce the same key iff they contain the same non-size
// identifiers, regardless of order. An empty collection yields "", the
// general lobby key.
func CanonicalKey(tags []models.Tag) string {
	ids := make([]string, 0, len(tags))
	for _, t := range Flatten(tags) {
		if t.IsSizeTag() {
			continue
		}
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// EqualByTitle reports whether two tag collections contain the same titles,
// regardless of order. Size tags are NOT excluded here.
//
// Note the deliberate asymmetry with CanonicalKey, which groups by identifier
// and skips size tags. Both behaviors are carried over from the system this
// service replaces; callers that need grouping semantics must use
// CanonicalKey, not EqualByTitle.
func EqualByTitle(a, b []models.Tag) bool {
	at := sortedTitles(a)
	bt := sortedTitles(b)
	if len(at) != len(bt) {
		return false
	}
	for i := range at {
		if at[i] != bt[i] {
			return false
		}
	}
	return true
}

func sortedTitles(tags []models.Tag) []string {
	titles := make([]string, 0, len(tags))
	for _, t := range Flatten(tags) {
		titles = append(titles, t.Title)
	}
	sort.Strings(titles)
	return titles
}
