package types

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger is the persistence collaborator the engine reads and mutates.
// Implementations serialise writes per entity.
type Ledger interface {
	Query(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	AddTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	CreateBudget(ctx context.Context, b Budget) (Budget, error)
	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	CreateInvestment(ctx context.Context, inv Investment) (Investment, error)
	CreateRecurring(ctx context.Context, r RecurringTransaction) (RecurringTransaction, error)

	Aggregate(ctx context.Context, userID string, start, end time.Time) (Totals, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]Budget, error)
	ListGoals(ctx context.Context, userID string, activeOnly bool) ([]Goal, error)
}

// ConversationStore keeps per-user conversation history. AppendTurns must be
// additive so two concurrent appends for one user both land.
type ConversationStore interface {
	AppendTurns(ctx context.Context, userID string, turns []ConversationTurn) error
	// ReadLatest returns up to limit most recent turns of the user's latest
	// conversation, oldest first.
	ReadLatest(ctx context.Context, userID string, limit int) ([]ConversationTurn, error)
}

// ToolDefinition describes a function a provider may call.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall is a function invocation returned by a provider.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// UsageMetadata captures token usage reported by a provider.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
