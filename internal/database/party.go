// internal/database/party.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/squadup/squadup/internal/models"
)

// ArchiveParty records a party's final state when the registry evicts it
// (disband, staleness, or upstream removal). The archive is append-only
// history; the registry never reads it back.
func (s *Store) ArchiveParty(ctx context.Context, p models.Party, reason string) error {
	membersJSON, err := json.Marshal(p.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal members: %w", err)
	}
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	q := `
	INSERT INTO party_archive (
		id, game_id, creator_id, created_at,
		members, max_size, tags, evict_reason
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			p.ID, p.GameID, p.CreatorID, p.CreatedAt,
			membersJSON, p.MaxSize, tagsJSON, reason,
		)
		return err
	})
}
