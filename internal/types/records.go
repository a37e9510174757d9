package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionRecord is the outcome of executing one FinancialAction. Kind selects
// which of the payload fields are populated. Records are stored with the
// assistant turn for audit and are never re-executed.
type ActionRecord struct {
	Kind       ActionKind `json:"kind"`
	ExecutedAt time.Time  `json:"executed_at"`

	Transaction  *Transaction          `json:"transaction,omitempty"`
	Previous     *Transaction          `json:"previous,omitempty"`
	Transactions []Transaction         `json:"transactions,omitempty"`
	Budget       *Budget               `json:"budget,omitempty"`
	Budgets      []Budget              `json:"budgets,omitempty"`
	Goal         *Goal                 `json:"goal,omitempty"`
	Goals        []Goal                `json:"goals,omitempty"`
	Investment   *Investment           `json:"investment,omitempty"`
	Recurring    *RecurringTransaction `json:"recurring,omitempty"`
	Stats        *StatisticsReport     `json:"stats,omitempty"`
	Habits       *HabitReport          `json:"habits,omitempty"`
}

// Summary is a one-line description used in CLI output and event payloads.
func (r *ActionRecord) Summary() string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case ActionAddTransaction, ActionModifyTransaction, ActionDeleteTransaction:
		if r.Transaction != nil {
			return string(r.Kind) + " " + r.Transaction.ID
		}
	case ActionCreateBudget:
		if r.Budget != nil {
			return string(r.Kind) + " " + r.Budget.ID
		}
	case ActionCreateGoal:
		if r.Goal != nil {
			return string(r.Kind) + " " + r.Goal.ID
		}
	case ActionCreateInvestment:
		if r.Investment != nil {
			return string(r.Kind) + " " + r.Investment.ID
		}
	case ActionCreateRecurringTransaction:
		if r.Recurring != nil {
			return string(r.Kind) + " " + r.Recurring.ID
		}
	}
	return string(r.Kind)
}

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// StatisticsReport summarises a period.
type StatisticsReport struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Income           decimal.Decimal `json:"income"`
	Expense          decimal.Decimal `json:"expense"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transaction_count"`
	ByCategory       []CategoryTotal `json:"by_category"`
}

// HabitReport describes spending patterns over a period.
type HabitReport struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	AverageDaily     decimal.Decimal `json:"average_daily"`
	TopCategory      string          `json:"top_category,omitempty"`
	TopCategoryShare decimal.Decimal `json:"top_category_share"`
	BusiestWeekday   string          `json:"busiest_weekday,omitempty"`
	LargestExpense   *Transaction    `json:"largest_expense,omitempty"`
	SavingsRate      decimal.Decimal `json:"savings_rate"`
	Insights         []string        `json:"insights"`
}
