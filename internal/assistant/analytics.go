package assistant

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finassist/internal/perception"
	"finassist/internal/types"
)

// habitWindowDays is the default look-back for habit analysis.
const habitWindowDays = 90

var hundred = decimal.NewFromInt(100)

// statistics summarises [from, to], defaulting to the current month.
func (x *Executor) statistics(ctx context.Context, userID string, from, to, now time.Time) (*types.StatisticsReport, error) {
	if from.IsZero() || to.IsZero() {
		from, to = perception.MonthBounds(now)
	}
	txs, err := x.periodTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	income, expense := sumByType(txs)
	return &types.StatisticsReport{
		From:             from,
		To:               to,
		Income:           income,
		Expense:          expense,
		Net:              income.Sub(expense),
		TransactionCount: len(txs),
		ByCategory:       categoryTotals(txs),
	}, nil
}

// habits looks for spending patterns in [from, to], defaulting to the last
// 90 days including today.
func (x *Executor) habits(ctx context.Context, userID string, from, to, now time.Time) (*types.HabitReport, error) {
	if from.IsZero() || to.IsZero() {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		from = day.AddDate(0, 0, -(habitWindowDays - 1))
		to = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	txs, err := x.periodTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	days := int64(math.Round(to.Sub(from).Hours() / 24))
	if days < 1 {
		days = 1
	}
	income, expense := sumByType(txs)
	report := &types.HabitReport{
		From:             from,
		To:               to,
		AverageDaily:     expense.Div(decimal.NewFromInt(days)).Round(2),
		TopCategoryShare: decimal.Zero,
		SavingsRate:      decimal.Zero,
	}

	if cats := categoryTotals(txs); len(cats) > 0 {
		report.TopCategory = cats[0].Category
		report.TopCategoryShare = cats[0].Amount.Div(expense).Mul(hundred).Round(1)
	}
	if income.IsPositive() {
		report.SavingsRate = income.Sub(expense).Div(income).Mul(hundred).Round(1)
	}

	var byDay [7]decimal.Decimal
	for i := range byDay {
		byDay[i] = decimal.Zero
	}
	for i := range txs {
		tx := txs[i]
		if tx.Type != types.TransactionExpense {
			continue
		}
		byDay[tx.Date.Weekday()] = byDay[tx.Date.Weekday()].Add(tx.Amount)
		// txs is newest first, so ties keep the most recent expense.
		if report.LargestExpense == nil || tx.Amount.GreaterThan(report.LargestExpense.Amount) {
			report.LargestExpense = &tx
		}
	}
	busiest := -1
	for d, total := range byDay {
		if total.IsPositive() && (busiest < 0 || total.GreaterThan(byDay[busiest])) {
			busiest = d
		}
	}
	if busiest >= 0 {
		report.BusiestWeekday = time.Weekday(busiest).String()
	}

	report.Insights = habitInsights(report, income, expense, len(txs))
	return report, nil
}

func habitInsights(r *types.HabitReport, income, expense decimal.Decimal, count int) []string {
	if count == 0 {
		return []string{"No transactions recorded in this period."}
	}
	var out []string
	if r.TopCategory != "" {
		out = append(out, fmt.Sprintf("%s accounts for %s%% of your spending.", r.TopCategory, r.TopCategoryShare.String()))
	}
	if r.BusiestWeekday != "" {
		out = append(out, fmt.Sprintf("You spend the most on %ss.", r.BusiestWeekday))
	}
	switch {
	case expense.GreaterThan(income) && income.IsPositive():
		out = append(out, "You spent more than you earned.")
	case income.IsZero() && expense.IsPositive():
		out = append(out, "No income was recorded in this period.")
	case r.SavingsRate.GreaterThanOrEqual(decimal.NewFromInt(20)):
		out = append(out, fmt.Sprintf("You saved %s%% of your income.", r.SavingsRate.String()))
	}
	return out
}

func (x *Executor) periodTransactions(ctx context.Context, userID string, from, to time.Time) ([]types.Transaction, error) {
	return x.ledger.Query(ctx, types.TransactionFilter{UserID: userID, From: &from, To: &to})
}

func sumByType(txs []types.Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Type == types.TransactionIncome {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
	}
	return income, expense
}

// categoryTotals groups expenses by category, largest first.
func categoryTotals(txs []types.Transaction) []types.CategoryTotal {
	idx := map[string]int{}
	var out []types.CategoryTotal
	for _, tx := range txs {
		if tx.Type != types.TransactionExpense {
			continue
		}
		i, ok := idx[tx.Category]
		if !ok {
			i = len(out)
			idx[tx.Category] = i
			out = append(out, types.CategoryTotal{Category: tx.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}
