package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionKind names a FinancialAction variant.
type ActionKind string

const (
	ActionSearchTransactions         ActionKind = "search_transactions"
	ActionAddTransaction             ActionKind = "add_transaction"
	ActionModifyTransaction          ActionKind = "modify_transaction"
	ActionDeleteTransaction          ActionKind = "delete_transaction"
	ActionCreateBudget               ActionKind = "create_budget"
	ActionCreateGoal                 ActionKind = "create_goal"
	ActionCreateInvestment           ActionKind = "create_investment"
	ActionCreateRecurringTransaction ActionKind = "create_recurring_transaction"
	ActionListGoals                  ActionKind = "list_goals"
	ActionListBudgets                ActionKind = "list_budgets"
	ActionStatistics                 ActionKind = "statistics"
	ActionAnalyzeHabits              ActionKind = "analyze_habits"
)

// AllActionKinds lists every variant in a stable order.
var AllActionKinds = []ActionKind{
	ActionAddTransaction,
	ActionSearchTransactions,
	ActionModifyTransaction,
	ActionDeleteTransaction,
	ActionCreateBudget,
	ActionCreateGoal,
	ActionCreateInvestment,
	ActionCreateRecurringTransaction,
	ActionListGoals,
	ActionListBudgets,
	ActionStatistics,
	ActionAnalyzeHabits,
}

// FinancialAction is one structured intent extracted from a user message.
// The set of implementations is closed; see the Action* kinds.
type FinancialAction interface {
	Kind() ActionKind
	// Mutating reports whether executing the action changes the ledger.
	Mutating() bool
	isFinancialAction()
}

// SearchTransactions lists transactions matching Filter.
type SearchTransactions struct {
	Filter TransactionFilter
}

// AddTransaction records a new income or expense.
type AddTransaction struct {
	Amount      decimal.Decimal
	Type        TransactionType
	Category    string
	Description string
	Date        time.Time
}

// ModifyTransaction changes the transaction selected by Match.
// Nil/empty New* fields are left unchanged.
type ModifyTransaction struct {
	Match          TransactionFilter
	NewAmount      *decimal.Decimal
	NewType        TransactionType
	NewCategory    string
	NewDescription string
	NewDate        *time.Time
}

// DeleteTransaction removes the transaction selected by Match.
type DeleteTransaction struct {
	Match TransactionFilter
}

// CreateBudget sets a spending cap for a category.
type CreateBudget struct {
	Category  string
	Limit     decimal.Decimal
	Period    Frequency
	StartDate time.Time
}

// CreateGoal opens a savings goal.
type CreateGoal struct {
	Name     string
	Target   decimal.Decimal
	Current  decimal.Decimal
	Deadline *time.Time
}

// CreateInvestment records an investment.
type CreateInvestment struct {
	Name   string
	Type   string
	Amount decimal.Decimal
	Date   time.Time
}

// CreateRecurringTransaction registers a repeating income or expense.
type CreateRecurringTransaction struct {
	Amount      decimal.Decimal
	Type        TransactionType
	Category    string
	Description string
	Frequency   Frequency
	StartDate   time.Time
}

// ListGoals lists active savings goals.
type ListGoals struct{}

// ListBudgets lists active budgets.
type ListBudgets struct{}

// Statistics summarises income and spending over a period.
type Statistics struct {
	From time.Time
	To   time.Time
}

// AnalyzeHabits looks for spending patterns over a period.
type AnalyzeHabits struct {
	From time.Time
	To   time.Time
}

func (SearchTransactions) Kind() ActionKind { return ActionSearchTransactions }
func (AddTransaction) Kind() ActionKind     { return ActionAddTransaction }
func (ModifyTransaction) Kind() ActionKind  { return ActionModifyTransaction }
func (DeleteTransaction) Kind() ActionKind  { return ActionDeleteTransaction }
func (CreateBudget) Kind() ActionKind       { return ActionCreateBudget }
func (CreateGoal) Kind() ActionKind         { return ActionCreateGoal }
func (CreateInvestment) Kind() ActionKind   { return ActionCreateInvestment }
func (CreateRecurringTransaction) Kind() ActionKind {
	return ActionCreateRecurringTransaction
}
func (ListGoals) Kind() ActionKind     { return ActionListGoals }
func (ListBudgets) Kind() ActionKind   { return ActionListBudgets }
func (Statistics) Kind() ActionKind    { return ActionStatistics }
func (AnalyzeHabits) Kind() ActionKind { return ActionAnalyzeHabits }

func (SearchTransactions) Mutating() bool         { return false }
func (AddTransaction) Mutating() bool             { return true }
func (ModifyTransaction) Mutating() bool          { return true }
func (DeleteTransaction) Mutating() bool          { return true }
func (CreateBudget) Mutating() bool               { return true }
func (CreateGoal) Mutating() bool                 { return true }
func (CreateInvestment) Mutating() bool           { return true }
func (CreateRecurringTransaction) Mutating() bool { return true }
func (ListGoals) Mutating() bool                  { return false }
func (ListBudgets) Mutating() bool                { return false }
func (Statistics) Mutating() bool                 { return false }
func (AnalyzeHabits) Mutating() bool              { return false }

func (SearchTransactions) isFinancialAction()         {}
func (AddTransaction) isFinancialAction()             {}
func (ModifyTransaction) isFinancialAction()          {}
func (DeleteTransaction) isFinancialAction()          {}
func (CreateBudget) isFinancialAction()               {}
func (CreateGoal) isFinancialAction()                 {}
func (CreateInvestment) isFinancialAction()           {}
func (CreateRecurringTransaction) isFinancialAction() {}
func (ListGoals) isFinancialAction()                  {}
func (ListBudgets) isFinancialAction()                {}
func (Statistics) isFinancialAction()                 {}
func (AnalyzeHabits) isFinancialAction()              {}
