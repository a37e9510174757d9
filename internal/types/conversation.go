package types

import "time"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in a conversation. Turns are append-only.
type ConversationTurn struct {
	Role      Role          `json:"role" bson:"role"`
	Content   string        `json:"content" bson:"content"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Action    *ActionRecord `json:"action,omitempty" bson:"-"`
}

// Conversation groups turns for one user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
