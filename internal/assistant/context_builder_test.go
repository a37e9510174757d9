package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/types"
)

func TestContextBuilder_Snapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f, "5000", types.TransactionIncome, "Salary", "salary", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	seed(t, f, "250", types.TransactionExpense, "Food", "groceries", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	seed(t, f, "1000", types.TransactionExpense, "Travel", "flight", time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC))
	_, err := f.ledger.CreateBudget(ctx, types.Budget{UserID: "alice", Category: "Food", Limit: dec("2000"), Period: types.FrequencyMonthly, StartDate: fixedNow, Active: true})
	require.NoError(t, err)
	_, err = f.ledger.CreateGoal(ctx, types.Goal{UserID: "alice", Name: "car", Target: dec("50000"), Active: true})
	require.NoError(t, err)

	snap, err := NewContextBuilder(f.ledger, "MAD", clock).Build(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, snap.Balance.Equal(dec("3750")), "balance %s", snap.Balance)
	assert.True(t, snap.IncomeThisPeriod.Equal(dec("5000")))
	assert.True(t, snap.ExpenseThisPeriod.Equal(dec("250")))
	assert.Equal(t, 1, snap.ActiveBudgetCount)
	assert.Equal(t, 1, snap.ActiveGoalCount)
	assert.Equal(t, "MAD", snap.Currency)
	assert.Equal(t, "2025-03-01", snap.PeriodStart.Format(dateLayout))
}

func TestContextBuilder_AnyFailureFails(t *testing.T) {
	f := newFixture(t)
	snap, err := NewContextBuilder(failingLedger{f.ledger}, "MAD", clock).Build(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance")
	assert.Equal(t, types.FinancialSnapshot{}, snap)
}
