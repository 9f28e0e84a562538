// internal/registry/registry_test.go
package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadup/squadup/internal/models"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	r := New(log, opts...)
	t.Cleanup(r.Close)
	return r
}

func someTags() []models.Tag {
	return []models.Tag{
		{ID: "1", Title: "PC", Type: models.TagTypeDevice},
		{ID: "2", Title: "Duo", Type: models.TagTypeGameMode},
	}
}

func TestCreatePartyStartsOpenWithCreator(t *testing.T) {
	r := newTestRegistry(t)
	game, creator := uuid.New(), uuid.New()

	p, err := r.CreateParty(context.Background(), game, creator, someTags(), 4)
	require.NoError(t, err)

	assert.Equal(t, models.PartyOpen, p.State)
	assert.Equal(t, []uuid.UUID{creator}, p.Members)
	assert.Equal(t, creator, p.CreatorID)
	assert.False(t, p.IsFull())
}

func TestJoinFillsPartyThenRejects(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	game := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	p, err := r.CreateParty(ctx, game, a, someTags(), 2)
	require.NoError(t, err)

	p, err = r.Join(ctx, p.ID, b)
	require.NoError(t, err)
	assert.Equal(t, models.PartyFull, p.State)
	assert.True(t, p.IsFull())

	_, err = r.Join(ctx, p.ID, c)
	assert.ErrorIs(t, err, ErrPartyFull)

	// Membership unchanged by the failed join.
	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, got.Members)
}

func TestJoinTwiceFails(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	p, err := r.CreateParty(ctx, uuid.New(), a, someTags(), 4)
	require.NoError(t, err)

	_, err = r.Join(ctx, p.ID, b)
	require.NoError(t, err)
	_, err = r.Join(ctx, p.ID, b)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	_, err = r.Join(ctx, p.ID, a)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestLeaveJoinRoundTripRestoresMembership(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	p, err := r.CreateParty(ctx, uuid.New(), a, someTags(), 4)
	require.NoError(t, err)
	_, err = r.Join(ctx, p.ID, b)
	require.NoError(t, err)

	_, err = r.Leave(ctx, p.ID, b)
	require.NoError(t, err)
	got, err := r.Join(ctx, p.ID, b)
	require.NoError(t, err)

	assert.ElementsMatch(t, []uuid.UUID{a, b}, got.Members)
}

func TestLeaveNonMemberFails(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	p, err := r.CreateParty(ctx, uuid.New(), uuid.New(), someTags(), 4)
	require.NoError(t, err)

	_, err = r.Leave(ctx, p.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestLastMemberLeavingDisbands(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	creator := uuid.New()

	var evicted []EvictReason
	r.OnEvict = func(p models.Party, reason EvictReason) {
		evicted = append(evicted, reason)
	}

	p, err := r.CreateParty(ctx, uuid.New(), creator, someTags(), 4)
	require.NoError(t, err)

	_, err = r.Leave(ctx, p.ID, creator)
	require.NoError(t, err)

	_, err = r.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPartyNotFound)
	assert.Equal(t, []EvictReason{EvictDisbanded}, evicted)
}

func TestCreatorLeavingPromotesOldestMember(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	p, err := r.CreateParty(ctx, uuid.New(), a, someTags(), 4)
	require.NoError(t, err)
	_, err = r.Join(ctx, p.ID, b)
	require.NoError(t, err)
	_, err = r.Join(ctx, p.ID, c)
	require.NoError(t, err)

	got, err := r.Leave(ctx, p.ID, a)
	require.NoError(t, err)

	assert.Equal(t, b, got.CreatorID)
	assert.Equal(t, []uuid.UUID{b, c}, got.Members)
}

func TestReapStaleRemovesExactlyExpired(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	game := uuid.New()

	old, err := r.CreateParty(ctx, game, uuid.New(), someTags(), 4)
	require.NoError(t, err)
	fresh, err := r.CreateParty(ctx, game, uuid.New(), someTags(), 4)
	require.NoError(t, err)

	// Reap from one window past the old party's creation; the fresh party was
	// created after that instant and survives.
	now := old.CreatedAt.Add(DefaultStalenessWindow)
	removed, err := r.ReapStale(ctx, now)
	require.NoError(t, err)

	assert.Contains(t, removed, old.ID)
	assert.NotContains(t, removed, fresh.ID)

	_, err = r.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrPartyNotFound)
	_, err = r.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestApplySnapshotDiffsAgainstCurrentState(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	game := uuid.New()

	kept, err := r.CreateParty(ctx, game, uuid.New(), someTags(), 4)
	require.NoError(t, err)
	dropped, err := r.CreateParty(ctx, game, uuid.New(), someTags(), 4)
	require.NoError(t, err)

	extra := uuid.New()
	newID := uuid.New()
	dtos := []models.PartyDTO{
		{
			ID: kept.ID, GameID: game, CreatorID: kept.CreatorID,
			CreatedAt: kept.CreatedAt.Unix(),
			Members:   append(kept.Members, extra),
			MaxSize:   4, Tags: kept.Tags,
		},
		{
			ID: newID, GameID: game, CreatorID: uuid.New(),
			CreatedAt: time.Now().Unix(),
			Members:   []uuid.UUID{uuid.New(), uuid.New()},
			MaxSize:   2, Tags: someTags(),
		},
	}

	require.NoError(t, r.ApplySnapshot(ctx, game, dtos))

	got, err := r.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)

	full, err := r.Get(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyFull, full.State)

	_, err = r.Get(ctx, dropped.ID)
	assert.ErrorIs(t, err, ErrPartyNotFound)
}

func TestSnapshotGameIsolatesGames(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	g1, g2 := uuid.New(), uuid.New()

	p1, err := r.CreateParty(ctx, g1, uuid.New(), someTags(), 4)
	require.NoError(t, err)
	_, err = r.CreateParty(ctx, g2, uuid.New(), someTags(), 4)
	require.NoError(t, err)

	ps, err := r.SnapshotGame(ctx, g1)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, p1.ID, ps[0].ID)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	r := New(log)
	r.Close()

	_, err := r.CreateParty(context.Background(), uuid.New(), uuid.New(), nil, 2)
	assert.ErrorIs(t, err, ErrClosed)
}
