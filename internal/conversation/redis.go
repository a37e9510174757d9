package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"finassist/internal/logging"
	"finassist/internal/types"
)

// RedisStore keeps each user's latest conversation as a Redis list of JSON
// turns plus a metadata hash.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "finassist"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) turnsKey(userID string) string {
	return fmt.Sprintf("%s:conversation:%s:turns", s.prefix, userID)
}

func (s *RedisStore) metaKey(userID string) string {
	return fmt.Sprintf("%s:conversation:%s:meta", s.prefix, userID)
}

// AppendTurns RPUSHes the turns inside MULTI/EXEC so they land contiguously.
func (s *RedisStore) AppendTurns(ctx context.Context, userID string, turns []types.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		st, err := encodeTurn(t)
		if err != nil {
			return err
		}
		b, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values = append(values, string(b))
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, s.metaKey(userID), "id", uuid.NewString())
		pipe.HSetNX(ctx, s.metaKey(userID), "created_at", now)
		pipe.HSet(ctx, s.metaKey(userID), "updated_at", now)
		pipe.RPush(ctx, s.turnsKey(userID), values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}
	logging.StoreDebug("redis: appended %d turns for %s", len(values), userID)
	return nil
}

// ReadLatest returns the last limit turns via LRANGE, oldest first.
func (s *RedisStore) ReadLatest(ctx context.Context, userID string, limit int) ([]types.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, s.turnsKey(userID), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}
	out := make([]types.ConversationTurn, 0, len(raw))
	for _, r := range raw {
		var st storedTurn
		if err := json.Unmarshal([]byte(r), &st); err != nil {
			logging.StoreError("redis: skipping undecodable turn for %s: %v", userID, err)
			continue
		}
		out = append(out, decodeTurn(st))
	}
	return out, nil
}

// Conversation returns the metadata of the user's conversation, if any.
func (s *RedisStore) Conversation(ctx context.Context, userID string) (*types.Conversation, error) {
	meta, err := s.client.HGetAll(ctx, s.metaKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}
	conv := &types.Conversation{ID: meta["id"], UserID: userID}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta["created_at"])
	conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, meta["updated_at"])
	return conv, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error { return s.client.Close() }
