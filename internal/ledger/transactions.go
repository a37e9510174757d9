package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finassist/internal/logging"
	"finassist/internal/types"
)

const transactionColumns = "id, user_id, amount, type, category, description, date, created_at"

// AddTransaction inserts tx, assigning an ID and CreatedAt when missing.
func (l *SQLLedger) AddTransaction(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = l.now()
	}
	_, err := l.exec(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.UserID, tx.Amount.String(), string(tx.Type), tx.Category, tx.Description,
		formatTime(tx.Date), formatTime(tx.CreatedAt),
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	logging.LedgerDebug("transaction added: id=%s user=%s amount=%s type=%s", tx.ID, tx.UserID, tx.Amount, tx.Type)
	return tx, nil
}

// UpdateTransaction overwrites the mutable fields of an existing transaction.
func (l *SQLLedger) UpdateTransaction(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	res, err := l.exec(ctx,
		`UPDATE transactions SET amount = ?, type = ?, category = ?, description = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		tx.Amount.String(), string(tx.Type), tx.Category, tx.Description, formatTime(tx.Date),
		tx.ID, tx.UserID,
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}
	logging.LedgerDebug("transaction updated: id=%s", tx.ID)
	return tx, nil
}

// DeleteTransaction removes one of the user's transactions.
func (l *SQLLedger) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := l.exec(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	logging.LedgerDebug("transaction deleted: id=%s", id)
	return nil
}

// Query returns the user's transactions matching filter, most recent first
// (by date, then creation time).
func (l *SQLLedger) Query(ctx context.Context, filter types.TransactionFilter) ([]types.Transaction, error) {
	timer := logging.StartTimer(logging.CategoryLedger, "Query")
	defer timer.Stop()

	var (
		where = []string{"user_id = ?"}
		args  = []interface{}{filter.UserID}
	)
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		where = append(where, "category = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}
	if filter.Text != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+filter.Text+"%")
	}
	if filter.From != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "date <= ?")
		args = append(args, formatTime(*filter.To))
	}

	query := "SELECT " + transactionColumns + " FROM transactions WHERE " +
		strings.Join(where, " AND ") + " ORDER BY date DESC, created_at DESC"

	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []types.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		// Amounts are stored as decimal text, so numeric filters run here.
		if !amountMatches(tx.Amount, filter) {
			continue
		}
		out = append(out, tx)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return out, nil
}

// Aggregate sums income and expense dated within [start, end].
func (l *SQLLedger) Aggregate(ctx context.Context, userID string, start, end time.Time) (types.Totals, error) {
	return l.totals(ctx,
		"SELECT type, amount FROM transactions WHERE user_id = ? AND date >= ? AND date <= ?",
		userID, formatTime(start), formatTime(end),
	)
}

// Balance is all-time income minus expense.
func (l *SQLLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	t, err := l.totals(ctx, "SELECT type, amount FROM transactions WHERE user_id = ?", userID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.Net(), nil
}

func (l *SQLLedger) totals(ctx context.Context, query string, args ...interface{}) (types.Totals, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.Totals{}, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	defer rows.Close()

	totals := types.Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for rows.Next() {
		var txType, amount string
		if err := rows.Scan(&txType, &amount); err != nil {
			return types.Totals{}, fmt.Errorf("failed to scan totals: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return types.Totals{}, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		if types.TransactionType(txType) == types.TransactionIncome {
			totals.Income = totals.Income.Add(d)
		} else {
			totals.Expense = totals.Expense.Add(d)
		}
	}
	if err := rows.Err(); err != nil {
		return types.Totals{}, fmt.Errorf("failed to read totals: %w", err)
	}
	return totals, nil
}

func amountMatches(amount decimal.Decimal, f types.TransactionFilter) bool {
	if f.Amount != nil && !amount.Equal(*f.Amount) {
		return false
	}
	if f.MinAmount != nil && amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

func scanTransaction(rows *sql.Rows) (types.Transaction, error) {
	var (
		tx                         types.Transaction
		amount, txType, date, made string
	)
	if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &txType, &tx.Category, &tx.Description, &date, &made); err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	tx.Type = types.TransactionType(txType)
	if tx.Date, err = parseTime(date); err != nil {
		return tx, err
	}
	if tx.CreatedAt, err = parseTime(made); err != nil {
		return tx, err
	}
	return tx, nil
}
