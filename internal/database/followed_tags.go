// internal/database/followed_tags.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/squadup/squadup/internal/models"
)

// InsertFollowedTagGroup persists a followed tag combination. Tags are stored
// as a jsonb blob; the canonical key is derived in code, never in SQL.
func (s *Store) InsertFollowedTagGroup(ctx context.Context, g *models.FollowedTagGroup) error {
	if g.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate follow id: %w", err)
		}
		g.ID = id
	}

	tagsJSON, err := json.Marshal(g.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	q := `
	INSERT INTO followed_tag_groups (id, owner_id, game_id, tags)
	VALUES ($1, $2, $3, $4)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, g.ID, g.OwnerID, g.GameID, tagsJSON)
		return err
	})
}

// ListFollowedTagGroups returns every tag combination a user follows.
func (s *Store) ListFollowedTagGroups(ctx context.Context, ownerID uuid.UUID) ([]models.FollowedTagGroup, error) {
	q := `
	SELECT id, owner_id, game_id, tags
	FROM followed_tag_groups
	WHERE owner_id=$1
	ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.FollowedTagGroup
	for rows.Next() {
		var g models.FollowedTagGroup
		var tagsJSON []byte
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.GameID, &tagsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tagsJSON, &g.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for follow %s: %w", g.ID, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// DeleteFollowedTagGroup removes a follow owned by ownerID.
func (s *Store) DeleteFollowedTagGroup(ctx context.Context, ownerID, followID uuid.UUID) error {
	q := `DELETE FROM followed_tag_groups WHERE id=$1 AND owner_id=$2`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, followID, ownerID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("no followed tag group %v owned by %v", followID, ownerID)
		}
		return nil
	})
}
