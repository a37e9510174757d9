package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finassist/internal/ledger"
	"finassist/internal/logging"
	"finassist/internal/perception"
	"finassist/internal/types"
)

// defaultSearchLimit caps search results when the action sets no limit.
const defaultSearchLimit = 20

// Executor applies one FinancialAction to the ledger.
type Executor struct {
	ledger types.Ledger
	now    func() time.Time
}

// NewExecutor creates an executor over ledger.
func NewExecutor(l types.Ledger, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{ledger: l, now: now}
}

// Execute validates and applies action for userID. Domain failures are
// returned as *ActionError; any other error comes from the ledger.
func (x *Executor) Execute(ctx context.Context, userID string, action types.FinancialAction) (*types.ActionRecord, error) {
	timer := logging.StartTimer(logging.CategoryEngine, "Execute")
	defer timer.Stop()

	now := x.now()
	rec := &types.ActionRecord{Kind: action.Kind(), ExecutedAt: now}

	switch a := action.(type) {
	case types.AddTransaction:
		if !a.Amount.IsPositive() {
			return nil, validationError(a.Kind(), "amount", "amount must be greater than zero")
		}
		tx := types.Transaction{
			UserID:      userID,
			Amount:      a.Amount,
			Type:        orDefaultType(a.Type),
			Category:    orDefault(a.Category, types.CategoryOther),
			Description: strings.TrimSpace(a.Description),
			Date:        orNow(a.Date, now),
		}
		if tx.Description == "" {
			tx.Description = tx.Category
		}
		added, err := x.ledger.AddTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		rec.Transaction = &added

	case types.SearchTransactions:
		f := a.Filter
		f.UserID = userID
		if f.Limit <= 0 {
			f.Limit = defaultSearchLimit
		}
		txs, err := x.ledger.Query(ctx, f)
		if err != nil {
			return nil, err
		}
		rec.Transactions = txs

	case types.ModifyTransaction:
		if a.NewAmount != nil && !a.NewAmount.IsPositive() {
			return nil, validationError(a.Kind(), "new_amount", "amount must be greater than zero")
		}
		if a.NewAmount == nil && !a.NewType.Valid() && a.NewCategory == "" && a.NewDescription == "" && a.NewDate == nil {
			return nil, validationError(a.Kind(), "", "nothing to change")
		}
		target, err := x.resolve(ctx, userID, a.Kind(), a.Match)
		if err != nil {
			return nil, err
		}
		prev := target
		if a.NewAmount != nil {
			target.Amount = *a.NewAmount
		}
		if a.NewType.Valid() {
			target.Type = a.NewType
		}
		if a.NewCategory != "" {
			target.Category = a.NewCategory
		}
		if a.NewDescription != "" {
			target.Description = a.NewDescription
		}
		if a.NewDate != nil {
			target.Date = *a.NewDate
		}
		updated, err := x.ledger.UpdateTransaction(ctx, target)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, notFoundError(a.Kind(), "the transaction no longer exists")
		}
		if err != nil {
			return nil, err
		}
		rec.Previous = &prev
		rec.Transaction = &updated

	case types.DeleteTransaction:
		target, err := x.resolve(ctx, userID, a.Kind(), a.Match)
		if err != nil {
			return nil, err
		}
		err = x.ledger.DeleteTransaction(ctx, userID, target.ID)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, notFoundError(a.Kind(), "the transaction no longer exists")
		}
		if err != nil {
			return nil, err
		}
		rec.Transaction = &target

	case types.CreateBudget:
		if !a.Limit.IsPositive() {
			return nil, validationError(a.Kind(), "limit", "limit must be greater than zero")
		}
		period := a.Period
		if period == "" {
			period = types.FrequencyMonthly
		}
		start := a.StartDate
		if start.IsZero() {
			start, _ = perception.MonthBounds(now)
		}
		b, err := x.ledger.CreateBudget(ctx, types.Budget{
			UserID:    userID,
			Category:  orDefault(a.Category, types.CategoryOther),
			Limit:     a.Limit,
			Period:    period,
			StartDate: start,
			Active:    true,
		})
		if err != nil {
			return nil, err
		}
		rec.Budget = &b

	case types.CreateGoal:
		if !a.Target.IsPositive() {
			return nil, validationError(a.Kind(), "target", "target must be greater than zero")
		}
		if a.Current.IsNegative() {
			return nil, validationError(a.Kind(), "current", "current amount cannot be negative")
		}
		g, err := x.ledger.CreateGoal(ctx, types.Goal{
			UserID:   userID,
			Name:     orDefault(a.Name, "Savings"),
			Target:   a.Target,
			Current:  a.Current,
			Deadline: a.Deadline,
			Active:   true,
		})
		if err != nil {
			return nil, err
		}
		rec.Goal = &g

	case types.CreateInvestment:
		if !a.Amount.IsPositive() {
			return nil, validationError(a.Kind(), "amount", "amount must be greater than zero")
		}
		invType := orDefault(a.Type, "other")
		inv, err := x.ledger.CreateInvestment(ctx, types.Investment{
			UserID: userID,
			Name:   orDefault(a.Name, invType),
			Type:   invType,
			Amount: a.Amount,
			Date:   orNow(a.Date, now),
		})
		if err != nil {
			return nil, err
		}
		rec.Investment = &inv

	case types.CreateRecurringTransaction:
		if !a.Amount.IsPositive() {
			return nil, validationError(a.Kind(), "amount", "amount must be greater than zero")
		}
		freq := a.Frequency
		if freq == "" {
			freq = types.FrequencyMonthly
		}
		category := orDefault(a.Category, types.CategoryOther)
		r, err := x.ledger.CreateRecurring(ctx, types.RecurringTransaction{
			UserID:      userID,
			Amount:      a.Amount,
			Type:        orDefaultType(a.Type),
			Category:    category,
			Description: orDefault(strings.TrimSpace(a.Description), category),
			Frequency:   freq,
			StartDate:   orNow(a.StartDate, now),
			Active:      true,
		})
		if err != nil {
			return nil, err
		}
		rec.Recurring = &r

	case types.ListGoals:
		goals, err := x.ledger.ListGoals(ctx, userID, true)
		if err != nil {
			return nil, err
		}
		rec.Goals = goals

	case types.ListBudgets:
		budgets, err := x.ledger.ListBudgets(ctx, userID, true)
		if err != nil {
			return nil, err
		}
		rec.Budgets = budgets

	case types.Statistics:
		report, err := x.statistics(ctx, userID, a.From, a.To, now)
		if err != nil {
			return nil, err
		}
		rec.Stats = report

	case types.AnalyzeHabits:
		report, err := x.habits(ctx, userID, a.From, a.To, now)
		if err != nil {
			return nil, err
		}
		rec.Habits = report

	default:
		return nil, fmt.Errorf("unsupported action %T", action)
	}

	logging.Engine("executed %s for %s", rec.Kind, userID)
	return rec, nil
}

// resolve picks the transaction a modify or delete refers to: the most
// recent match by date, then creation time. Zero matches is NotFound.
func (x *Executor) resolve(ctx context.Context, userID string, kind types.ActionKind, match types.TransactionFilter) (types.Transaction, error) {
	match.UserID = userID
	match.Limit = 0
	candidates, err := x.ledger.Query(ctx, match)
	if err != nil {
		return types.Transaction{}, err
	}
	if len(candidates) == 0 {
		return types.Transaction{}, notFoundError(kind, "no transaction matches")
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Date.After(best.Date) || (c.Date.Equal(best.Date) && c.CreatedAt.After(best.CreatedAt)) {
			best = c
		}
	}
	if len(candidates) > 1 {
		logging.EngineDebug("%s: %d candidates, using most recent %s", kind, len(candidates), best.ID)
	}
	return best, nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func orDefaultType(t types.TransactionType) types.TransactionType {
	if t.Valid() {
		return t
	}
	return types.TransactionExpense
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
