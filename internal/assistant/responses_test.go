package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"finassist/internal/types"
)

func TestResponder_RenderTemplates(t *testing.T) {
	r := NewResponder("MAD")
	day := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := types.Transaction{Amount: dec("150"), Type: types.TransactionExpense, Category: "Food", Description: "restaurant", Date: day}
	updated := prev
	updated.Amount = dec("120")

	tests := []struct {
		name string
		rec  *types.ActionRecord
		want string
	}{
		{
			name: "add expense",
			rec:  &types.ActionRecord{Kind: types.ActionAddTransaction, Transaction: &prev},
			want: "Recorded an expense of 150.00 MAD in Food (restaurant) on 2025-03-14.",
		},
		{
			name: "modify",
			rec:  &types.ActionRecord{Kind: types.ActionModifyTransaction, Previous: &prev, Transaction: &updated},
			want: "Updated the restaurant transaction from 2025-03-14: amount 150.00 MAD → 120.00 MAD.",
		},
		{
			name: "delete",
			rec:  &types.ActionRecord{Kind: types.ActionDeleteTransaction, Transaction: &prev},
			want: "Deleted the Food transaction of 150.00 MAD (restaurant) from 2025-03-14.",
		},
		{
			name: "empty search",
			rec:  &types.ActionRecord{Kind: types.ActionSearchTransactions},
			want: "No transactions match your search.",
		},
		{
			name: "goal with deadline",
			rec: &types.ActionRecord{Kind: types.ActionCreateGoal, Goal: &types.Goal{
				Name: "car", Target: dec("50000"), Deadline: &deadline,
			}},
			want: `Created the goal "car" with a target of 50000.00 MAD by 2026-01-01.`,
		},
		{
			name: "no budgets",
			rec:  &types.ActionRecord{Kind: types.ActionListBudgets},
			want: "You have no active budgets.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Render(tt.rec))
		})
	}
}

func TestResponder_SearchListIsCapped(t *testing.T) {
	r := NewResponder("MAD")
	var txs []types.Transaction
	for i := 0; i < 8; i++ {
		txs = append(txs, types.Transaction{Amount: dec("10.5"), Type: types.TransactionExpense, Category: "Food", Description: "snack"})
	}
	out := r.Render(&types.ActionRecord{Kind: types.ActionSearchTransactions, Transactions: txs})

	assert.True(t, strings.HasPrefix(out, "Found 8 transaction(s):"))
	assert.Equal(t, maxListed, strings.Count(out, "-10.50 MAD"))
	assert.Contains(t, out, "and 3 more.")
}

func TestResponder_RenderError(t *testing.T) {
	r := NewResponder("MAD")
	assert.Equal(t, "I couldn't find a transaction to update. Nothing was changed.",
		r.RenderError(notFoundError(types.ActionModifyTransaction, "no transaction matches")))
	assert.Equal(t, "I couldn't do that: amount must be greater than zero. Nothing was changed.",
		r.RenderError(validationError(types.ActionAddTransaction, "amount", "amount must be greater than zero")))
}
