package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/types"
)

func newTestLedger(t *testing.T) *SQLLedger {
	t.Helper()
	l, err := Open("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

var day = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func mustAdd(t *testing.T, l *SQLLedger, tx types.Transaction) types.Transaction {
	t.Helper()
	out, err := l.AddTransaction(context.Background(), tx)
	require.NoError(t, err)
	return out
}

func TestTransactions_AddQueryOrder(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	older := mustAdd(t, l, types.Transaction{UserID: "u1", Amount: decimal.NewFromInt(50), Type: types.TransactionExpense,
		Category: "Food", Description: "lunch", Date: day.AddDate(0, 0, -2)})
	newer := mustAdd(t, l, types.Transaction{UserID: "u1", Amount: decimal.RequireFromString("150.25"), Type: types.TransactionExpense,
		Category: "Food", Description: "restaurant dinner", Date: day})
	mustAdd(t, l, types.Transaction{UserID: "u2", Amount: decimal.NewFromInt(10), Type: types.TransactionExpense,
		Category: "Food", Date: day})

	assert.NotEmpty(t, older.ID)
	assert.False(t, older.CreatedAt.IsZero())

	got, err := l.Query(ctx, types.TransactionFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("150.25")))
	assert.True(t, got[0].Date.Equal(day))
	assert.Equal(t, older.ID, got[1].ID)

	got, err = l.Query(ctx, types.TransactionFilter{UserID: "u1", Text: "RESTAURANT"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)

	amt := decimal.NewFromInt(50)
	got, err = l.Query(ctx, types.TransactionFilter{UserID: "u1", Amount: &amt})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, older.ID, got[0].ID)

	min := decimal.NewFromInt(100)
	got, err = l.Query(ctx, types.TransactionFilter{UserID: "u1", MinAmount: &min, Category: "food"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)

	from := day.AddDate(0, 0, -3)
	to := day.AddDate(0, 0, -1)
	got, err = l.Query(ctx, types.TransactionFilter{UserID: "u1", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, older.ID, got[0].ID)

	got, err = l.Query(ctx, types.TransactionFilter{UserID: "u1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTransactions_SameDateOrderedByCreation(t *testing.T) {
	l := newTestLedger(t)
	clock := day
	l.SetClock(func() time.Time { clock = clock.Add(time.Second); return clock })

	first := mustAdd(t, l, types.Transaction{UserID: "u", Amount: decimal.NewFromInt(1), Type: types.TransactionExpense, Category: "Other", Date: day})
	second := mustAdd(t, l, types.Transaction{UserID: "u", Amount: decimal.NewFromInt(2), Type: types.TransactionExpense, Category: "Other", Date: day})

	got, err := l.Query(context.Background(), types.TransactionFilter{UserID: "u"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestTransactions_UpdateDelete(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	tx := mustAdd(t, l, types.Transaction{UserID: "u", Amount: decimal.NewFromInt(80), Type: types.TransactionExpense, Category: "Transport", Date: day})

	tx.Amount = decimal.NewFromInt(95)
	tx.Description = "taxi"
	_, err := l.UpdateTransaction(ctx, tx)
	require.NoError(t, err)

	got, err := l.Query(ctx, types.TransactionFilter{UserID: "u"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(95)))
	assert.Equal(t, "taxi", got[0].Description)

	other := tx
	other.UserID = "intruder"
	_, err = l.UpdateTransaction(ctx, other)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, l.DeleteTransaction(ctx, "u", tx.ID))
	assert.ErrorIs(t, l.DeleteTransaction(ctx, "u", tx.ID), ErrNotFound)

	got, err = l.Query(ctx, types.TransactionFilter{UserID: "u"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregateAndBalance(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	mustAdd(t, l, types.Transaction{UserID: "u", Amount: decimal.NewFromInt(10000), Type: types.TransactionIncome, Category: "Salary", Date: day})
	mustAdd(t, l, types.Transaction{UserID: "u", Amount: decimal.RequireFromString("150.50"), Type: types.TransactionExpense, Category: "Food", Date: day})
	mustAdd(t, l, types.Transaction{UserID: "u", Amount: decimal.NewFromInt(300), Type: types.TransactionExpense, Category: "Food", Date: day.AddDate(0, -1, 0)})

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	totals, err := l.Aggregate(ctx, "u", start, end)
	require.NoError(t, err)
	assert.True(t, totals.Income.Equal(decimal.NewFromInt(10000)))
	assert.True(t, totals.Expense.Equal(decimal.RequireFromString("150.50")))

	bal, err := l.Balance(ctx, "u")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("9549.50")), bal.String())

	bal, err = l.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestPlanningEntities(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	b, err := l.CreateBudget(ctx, types.Budget{UserID: "u", Category: "Food", Limit: decimal.NewFromInt(2000), Period: types.FrequencyMonthly, StartDate: day})
	require.NoError(t, err)
	assert.True(t, b.Active)
	budgets, err := l.ListBudgets(ctx, "u", true)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, b.ID, budgets[0].ID)
	assert.True(t, budgets[0].Limit.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, types.FrequencyMonthly, budgets[0].Period)

	deadline := day.AddDate(1, 0, 0)
	g, err := l.CreateGoal(ctx, types.Goal{UserID: "u", Name: "car", Target: decimal.NewFromInt(10000), Deadline: &deadline})
	require.NoError(t, err)
	_, err = l.CreateGoal(ctx, types.Goal{UserID: "u", Name: "trip", Target: decimal.NewFromInt(3000)})
	require.NoError(t, err)
	goals, err := l.ListGoals(ctx, "u", true)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	var car types.Goal
	for _, goal := range goals {
		if goal.ID == g.ID {
			car = goal
		}
	}
	require.NotNil(t, car.Deadline)
	assert.True(t, car.Deadline.Equal(deadline))
	assert.True(t, car.Current.IsZero())

	inv, err := l.CreateInvestment(ctx, types.Investment{UserID: "u", Name: "bitcoin", Type: "crypto", Amount: decimal.NewFromInt(5000), Date: day})
	require.NoError(t, err)
	assert.NotEmpty(t, inv.ID)

	r, err := l.CreateRecurring(ctx, types.RecurringTransaction{UserID: "u", Amount: decimal.NewFromInt(3000), Type: types.TransactionExpense,
		Category: "Housing", Description: "rent", Frequency: types.FrequencyMonthly, StartDate: day})
	require.NoError(t, err)
	assert.True(t, r.NextDate.Equal(day))
	assert.True(t, r.Active)
}
