// internal/presence/presence.go

// Package presence tracks which users are currently active under a
// (game, tag key) pair, backed by Redis. Ordering is stable: users are
// returned in the order their first heartbeat arrived, regardless of
// refreshes.
package presence

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultActiveWindow is how long a user stays "active" after their last
// heartbeat.
const DefaultActiveWindow = 5 * time.Minute

// Store is a Redis-backed presence tracker.
type Store struct {
	rdb    *redis.Client
	window time.Duration
}

// Connect creates a Store from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect(ctx context.Context) (*Store, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewStore(rdb), nil
}

// NewStore wraps an existing Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, window: DefaultActiveWindow}
}

func orderKey(gameID uuid.UUID, key string) string {
	return fmt.Sprintf("presence:%s:%s:order", gameID, key)
}

func seenKey(gameID uuid.UUID, key string) string {
	return fmt.Sprintf("presence:%s:%s:seen", gameID, key)
}

// Heartbeat records userID as active under (gameID, key). The first
// heartbeat fixes the user's position in the ordering; refreshes only extend
// liveness.
func (s *Store) Heartbeat(ctx context.Context, gameID uuid.UUID, key string, userID uuid.UUID) error {
	now := time.Now()
	pipe := s.rdb.Pipeline()
	// NX keeps the first-seen score so refreshes don't reorder users.
	pipe.ZAddNX(ctx, orderKey(gameID, key), redis.Z{
		Score:  float64(now.UnixNano()),
		Member: userID.String(),
	})
	pipe.HSet(ctx, seenKey(gameID, key), userID.String(), now.Unix())
	pipe.Expire(ctx, orderKey(gameID, key), s.window)
	pipe.Expire(ctx, seenKey(gameID, key), s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

// ActiveUsers returns up to limit users whose last heartbeat is within the
// active window, in first-seen order. limit <= 0 returns all of them.
func (s *Store) ActiveUsers(ctx context.Context, gameID uuid.UUID, key string, limit int) ([]uuid.UUID, error) {
	seen, err := s.rdb.HGetAll(ctx, seenKey(gameID, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence read last-seen: %w", err)
	}
	members, err := s.rdb.ZRange(ctx, orderKey(gameID, key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("presence read order: %w", err)
	}

	cutoff := time.Now().Add(-s.window).Unix()
	users := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		last, ok := seen[m]
		if !ok {
			continue
		}
		ts, err := strconv.ParseInt(last, 10, 64)
		if err != nil || ts < cutoff {
			continue
		}
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		users = append(users, id)
		if limit > 0 && len(users) == limit {
			break
		}
	}
	return users, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
