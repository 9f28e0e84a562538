// internal/bridge/binder.go
package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/models"
)

const applyTimeout = 5 * time.Second

// SnapshotApplier is the registry-side half of the bridge.
type SnapshotApplier interface {
	ApplySnapshot(ctx context.Context, gameID uuid.UUID, dtos []models.PartyDTO) error
}

// Binder connects a Source to the registry: every snapshot the source
// delivers is applied as a full replacement of the game's parties. Apply
// failures are logged and the registry keeps its previous state.
type Binder struct {
	source   Source
	registry SnapshotApplier
	log      *logrus.Logger
}

// NewBinder returns a Binder over the given source and registry.
func NewBinder(source Source, registry SnapshotApplier, log *logrus.Logger) *Binder {
	return &Binder{source: source, registry: registry, log: log}
}

// Bind subscribes to gameID and forwards snapshots into the registry until
// the returned subscription is cancelled.
func (b *Binder) Bind(gameID uuid.UUID) (Subscription, error) {
	return b.source.SubscribeGameParties(gameID, func(dtos []models.PartyDTO) {
		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		defer cancel()
		if err := b.registry.ApplySnapshot(ctx, gameID, dtos); err != nil {
			b.log.WithField("game", gameID).Warnf("failed to apply feed snapshot: %v", err)
		}
	})
}
