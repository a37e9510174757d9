// Package conversation keeps the per-user turn history that grounds
// classification. Every backend appends additively so two concurrent
// appends for one user both land.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"finassist/internal/config"
	"finassist/internal/logging"
	"finassist/internal/types"
)

// Store is a ConversationStore that owns resources.
type Store interface {
	types.ConversationStore
	Close() error
}

// Open builds the backend named by cfg.Backend. db is required for the
// sqlite backend and ignored otherwise.
func Open(ctx context.Context, cfg config.ConversationConfig, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite conversation backend requires a database")
		}
		return NewSQLStore(db)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown conversation backend %q", cfg.Backend)
	}
}

// storedTurn is the serialised form of a turn. The action record travels as
// JSON so every backend keeps it intact.
type storedTurn struct {
	Role       string    `json:"role" bson:"role"`
	Content    string    `json:"content" bson:"content"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	ActionJSON string    `json:"action,omitempty" bson:"action,omitempty"`
}

func encodeTurn(t types.ConversationTurn) (storedTurn, error) {
	st := storedTurn{Role: string(t.Role), Content: t.Content, Timestamp: t.Timestamp.UTC()}
	if t.Action != nil {
		b, err := json.Marshal(t.Action)
		if err != nil {
			return st, fmt.Errorf("failed to encode action record: %w", err)
		}
		st.ActionJSON = string(b)
	}
	return st, nil
}

func decodeTurn(st storedTurn) types.ConversationTurn {
	turn := types.ConversationTurn{Role: types.Role(st.Role), Content: st.Content, Timestamp: st.Timestamp}
	if st.ActionJSON != "" {
		var rec types.ActionRecord
		if err := json.Unmarshal([]byte(st.ActionJSON), &rec); err != nil {
			logging.StoreError("dropping undecodable action record: %v", err)
		} else {
			turn.Action = &rec
		}
	}
	return turn
}

func encodeTurns(turns []types.ConversationTurn) ([]storedTurn, error) {
	out := make([]storedTurn, 0, len(turns))
	for _, t := range turns {
		st, err := encodeTurn(t)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// tail returns the last limit turns. A non-positive limit returns none.
func tail(turns []types.ConversationTurn, limit int) []types.ConversationTurn {
	if limit <= 0 {
		return nil
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]types.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}
