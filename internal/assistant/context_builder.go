package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finassist/internal/logging"
	"finassist/internal/perception"
	"finassist/internal/types"
)

// ContextBuilder computes the financial snapshot that grounds classification.
type ContextBuilder struct {
	ledger   types.Ledger
	currency string
	now      func() time.Time
}

// NewContextBuilder creates a builder over ledger.
func NewContextBuilder(ledger types.Ledger, currency string, now func() time.Time) *ContextBuilder {
	if now == nil {
		now = time.Now
	}
	return &ContextBuilder{ledger: ledger, currency: currency, now: now}
}

// Build runs the ledger queries concurrently over the current calendar month.
// Any query error fails the whole snapshot.
func (b *ContextBuilder) Build(ctx context.Context, userID string) (types.FinancialSnapshot, error) {
	timer := logging.StartTimer(logging.CategoryEngine, "BuildContext")
	defer timer.StopWithThreshold(500 * time.Millisecond)

	start, end := perception.MonthBounds(b.now())
	snap := types.FinancialSnapshot{
		Balance:           decimal.Zero,
		IncomeThisPeriod:  decimal.Zero,
		ExpenseThisPeriod: decimal.Zero,
		Currency:          b.currency,
		PeriodStart:       start,
		PeriodEnd:         end,
	}

	// Each goroutine writes a distinct field of snap.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bal, err := b.ledger.Balance(gctx, userID)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		snap.Balance = bal
		return nil
	})
	g.Go(func() error {
		totals, err := b.ledger.Aggregate(gctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("period totals: %w", err)
		}
		snap.IncomeThisPeriod = totals.Income
		snap.ExpenseThisPeriod = totals.Expense
		return nil
	})
	g.Go(func() error {
		budgets, err := b.ledger.ListBudgets(gctx, userID, true)
		if err != nil {
			return fmt.Errorf("budgets: %w", err)
		}
		snap.ActiveBudgetCount = len(budgets)
		return nil
	})
	g.Go(func() error {
		goals, err := b.ledger.ListGoals(gctx, userID, true)
		if err != nil {
			return fmt.Errorf("goals: %w", err)
		}
		snap.ActiveGoalCount = len(goals)
		return nil
	})

	if err := g.Wait(); err != nil {
		return types.FinancialSnapshot{}, err
	}
	return snap, nil
}
