package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Category names used by the ledger. The set is open: providers may return
// other labels and the ledger stores whatever it is given.
const (
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryHousing       = "Housing"
	CategoryHealth        = "Health"
	CategoryEntertainment = "Entertainment"
	CategoryShopping      = "Shopping"
	CategoryEducation     = "Education"
	CategoryTravel        = "Travel"
	CategorySalary        = "Salary"
	CategoryInvestment    = "Investment"
	CategoryOther         = "Other"
)

// Frequency is the cadence of a recurring transaction.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Next returns the first occurrence strictly after from.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Transaction is a single ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Budget caps spending in one category over a period.
type Budget struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Period    Frequency       `json:"period"`
	StartDate time.Time       `json:"start_date"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Goal is a savings target.
type Goal struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Target    decimal.Decimal `json:"target"`
	Current   decimal.Decimal `json:"current"`
	Deadline  *time.Time      `json:"deadline,omitempty"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Progress returns Current/Target as a percentage in [0,100].
func (g Goal) Progress() decimal.Decimal {
	if !g.Target.IsPositive() {
		return decimal.Zero
	}
	p := g.Current.Div(g.Target).Mul(decimal.NewFromInt(100))
	if p.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return p.Round(1)
}

// Investment records money placed in an asset.
type Investment struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecurringTransaction is a template the scheduler materialises on NextDate.
type RecurringTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Frequency   Frequency       `json:"frequency"`
	StartDate   time.Time       `json:"start_date"`
	NextDate    time.Time       `json:"next_date"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionFilter selects ledger transactions. Zero fields do not filter.
type TransactionFilter struct {
	UserID    string           `json:"-"`
	Type      TransactionType  `json:"type,omitempty"`
	Category  string           `json:"category,omitempty"`
	Text      string           `json:"text,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	From      *time.Time       `json:"from,omitempty"`
	To        *time.Time       `json:"to,omitempty"`
	Limit     int              `json:"limit,omitempty"`
}

// IsEmpty reports whether the filter has no selection criteria besides the user.
func (f TransactionFilter) IsEmpty() bool {
	return f.Type == "" && f.Category == "" && f.Text == "" && f.Amount == nil &&
		f.MinAmount == nil && f.MaxAmount == nil && f.From == nil && f.To == nil
}

// Totals are income and expense sums over a period.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Net returns income minus expense.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// FinancialSnapshot grounds classification and responses.
type FinancialSnapshot struct {
	Balance           decimal.Decimal `json:"balance"`
	IncomeThisPeriod  decimal.Decimal `json:"income_this_period"`
	ExpenseThisPeriod decimal.Decimal `json:"expense_this_period"`
	ActiveBudgetCount int             `json:"active_budget_count"`
	ActiveGoalCount   int             `json:"active_goal_count"`
	Currency          string          `json:"currency"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
}
