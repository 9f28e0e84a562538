// internal/bridge/bridge_test.go
package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadup/squadup/internal/models"
)

func TestMemorySourcePublishReachesSubscriber(t *testing.T) {
	src := NewMemorySource()
	game := uuid.New()

	var got [][]models.PartyDTO
	sub, err := src.SubscribeGameParties(game, func(dtos []models.PartyDTO) {
		got = append(got, dtos)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	src.Publish(game, []models.PartyDTO{{ID: uuid.New(), GameID: game}})
	src.Publish(uuid.New(), []models.PartyDTO{{ID: uuid.New()}}) // other game

	require.Len(t, got, 1)
	assert.Len(t, got[0], 1)
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	src := NewMemorySource()
	game := uuid.New()

	calls := 0
	sub, err := src.SubscribeGameParties(game, func([]models.PartyDTO) { calls++ })
	require.NoError(t, err)

	src.Publish(game, nil)
	sub.Unsubscribe()
	sub.Unsubscribe() // second call must be a no-op
	src.Publish(game, nil)

	assert.Equal(t, 1, calls)
}

type recordingApplier struct {
	applied map[uuid.UUID][][]models.PartyDTO
	err     error
}

func (r *recordingApplier) ApplySnapshot(ctx context.Context, gameID uuid.UUID, dtos []models.PartyDTO) error {
	if r.err != nil {
		return r.err
	}
	if r.applied == nil {
		r.applied = make(map[uuid.UUID][][]models.PartyDTO)
	}
	r.applied[gameID] = append(r.applied[gameID], dtos)
	return nil
}

func TestBinderForwardsSnapshotsToRegistry(t *testing.T) {
	src := NewMemorySource()
	applier := &recordingApplier{}
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	game := uuid.New()
	sub, err := NewBinder(src, applier, log).Bind(game)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	dtos := []models.PartyDTO{{
		ID: uuid.New(), GameID: game, CreatedAt: time.Now().Unix(),
		Members: []uuid.UUID{uuid.New()}, MaxSize: 4,
	}}
	src.Publish(game, dtos)

	require.Len(t, applier.applied[game], 1)
	assert.Equal(t, dtos, applier.applied[game][0])
}

func TestBinderSwallowsApplyErrors(t *testing.T) {
	src := NewMemorySource()
	applier := &recordingApplier{err: errors.New("transport down")}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	game := uuid.New()
	sub, err := NewBinder(src, applier, log).Bind(game)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Must not panic or propagate; the registry keeps its last state.
	src.Publish(game, nil)
}

func TestBackoffIsBoundedAndGrows(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := backoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, backoffCap+backoffCap/10)
		if attempt <= 5 {
			assert.GreaterOrEqual(t, d, prev/2) // monotone modulo jitter
		}
		prev = d
	}
}
