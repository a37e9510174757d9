package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finassist/internal/logging"
	"finassist/internal/types"
)

const sqlTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore keeps conversations in the ledger's SQLite database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the conversation tables on db.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS conversation_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		action_json TEXT,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(conversation_id, id);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create conversation tables: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// AppendTurns inserts turns into the user's latest conversation, creating
// one if needed. Turns are plain INSERTs so concurrent appends interleave
// rather than overwrite.
func (s *SQLStore) AppendTurns(ctx context.Context, userID string, turns []types.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	encoded, err := encodeTurns(turns)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(sqlTimeLayout)
	convID, err := latestConversationID(ctx, tx, userID)
	if err != nil {
		return err
	}
	if convID == "" {
		convID = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO conversations (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
			convID, userID, now, now,
		); err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		logging.StoreDebug("conversation created: id=%s user=%s", convID, userID)
	}

	for _, st := range encoded {
		var action sql.NullString
		if st.ActionJSON != "" {
			action = sql.NullString{String: st.ActionJSON, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO conversation_turns (conversation_id, role, content, action_json, timestamp) VALUES (?, ?, ?, ?, ?)",
			convID, st.Role, st.Content, action, st.Timestamp.Format(sqlTimeLayout),
		); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE conversations SET updated_at = ? WHERE id = ?", now, convID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turns: %w", err)
	}
	return nil
}

// ReadLatest returns up to limit most recent turns, oldest first.
func (s *SQLStore) ReadLatest(ctx context.Context, userID string, limit int) ([]types.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, action_json, timestamp FROM conversation_turns
		WHERE conversation_id = (
			SELECT id FROM conversations WHERE user_id = ? ORDER BY updated_at DESC LIMIT 1
		)
		ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var newestFirst []types.ConversationTurn
	for rows.Next() {
		var (
			st     storedTurn
			action sql.NullString
			ts     string
		)
		if err := rows.Scan(&st.Role, &st.Content, &action, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		st.ActionJSON = action.String
		if st.Timestamp, err = time.Parse(sqlTimeLayout, ts); err != nil {
			return nil, fmt.Errorf("invalid stored timestamp %q: %w", ts, err)
		}
		newestFirst = append(newestFirst, decodeTurn(st))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	out := make([]types.ConversationTurn, len(newestFirst))
	for i, t := range newestFirst {
		out[len(newestFirst)-1-i] = t
	}
	return out, nil
}

// Close leaves the shared database open; its owner closes it.
func (s *SQLStore) Close() error { return nil }

func latestConversationID(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM conversations WHERE user_id = ? ORDER BY updated_at DESC LIMIT 1", userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find conversation: %w", err)
	}
	return id, nil
}
