package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finassist/internal/logging"
	"finassist/internal/types"
)

// CreateBudget inserts an active budget.
func (l *SQLLedger) CreateBudget(ctx context.Context, b types.Budget) (types.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = l.now()
	}
	b.Active = true
	_, err := l.exec(ctx,
		`INSERT INTO budgets (id, user_id, category, limit_amount, period, start_date, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Category, b.Limit.String(), string(b.Period), formatTime(b.StartDate),
		boolInt(b.Active), formatTime(b.CreatedAt),
	)
	if err != nil {
		return types.Budget{}, fmt.Errorf("failed to insert budget: %w", err)
	}
	logging.LedgerDebug("budget created: id=%s category=%s limit=%s", b.ID, b.Category, b.Limit)
	return b, nil
}

// ListBudgets returns the user's budgets, newest first.
func (l *SQLLedger) ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]types.Budget, error) {
	query := `SELECT id, user_id, category, limit_amount, period, start_date, active, created_at
		FROM budgets WHERE user_id = ?`
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY created_at DESC"

	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var out []types.Budget
	for rows.Next() {
		var (
			b                          types.Budget
			limit, period, start, made string
			active                     int
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &limit, &period, &start, &active, &made); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		if b.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("invalid stored limit %q: %w", limit, err)
		}
		b.Period = types.Frequency(period)
		b.Active = active == 1
		if b.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if b.CreatedAt, err = parseTime(made); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateGoal inserts an active goal.
func (l *SQLLedger) CreateGoal(ctx context.Context, g types.Goal) (types.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = l.now()
	}
	g.Active = true
	var deadline sql.NullString
	if g.Deadline != nil {
		deadline = sql.NullString{String: formatTime(*g.Deadline), Valid: true}
	}
	_, err := l.exec(ctx,
		`INSERT INTO goals (id, user_id, name, target, current, deadline, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Target.String(), g.Current.String(), deadline,
		boolInt(g.Active), formatTime(g.CreatedAt),
	)
	if err != nil {
		return types.Goal{}, fmt.Errorf("failed to insert goal: %w", err)
	}
	logging.LedgerDebug("goal created: id=%s name=%s target=%s", g.ID, g.Name, g.Target)
	return g, nil
}

// ListGoals returns the user's goals, newest first.
func (l *SQLLedger) ListGoals(ctx context.Context, userID string, activeOnly bool) ([]types.Goal, error) {
	query := `SELECT id, user_id, name, target, current, deadline, active, created_at
		FROM goals WHERE user_id = ?`
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY created_at DESC"

	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var out []types.Goal
	for rows.Next() {
		var (
			g                     types.Goal
			target, current, made string
			deadline              sql.NullString
			active                int
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &deadline, &active, &made); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		if g.Target, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("invalid stored target %q: %w", target, err)
		}
		if g.Current, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("invalid stored current %q: %w", current, err)
		}
		if deadline.Valid {
			d, err := parseTime(deadline.String)
			if err != nil {
				return nil, err
			}
			g.Deadline = &d
		}
		g.Active = active == 1
		if g.CreatedAt, err = parseTime(made); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateInvestment inserts an investment record.
func (l *SQLLedger) CreateInvestment(ctx context.Context, inv types.Investment) (types.Investment, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = l.now()
	}
	_, err := l.exec(ctx,
		`INSERT INTO investments (id, user_id, name, type, amount, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.Name, inv.Type, inv.Amount.String(), formatTime(inv.Date), formatTime(inv.CreatedAt),
	)
	if err != nil {
		return types.Investment{}, fmt.Errorf("failed to insert investment: %w", err)
	}
	logging.LedgerDebug("investment created: id=%s name=%s amount=%s", inv.ID, inv.Name, inv.Amount)
	return inv, nil
}

// CreateRecurring inserts an active recurring template. NextDate defaults to
// StartDate; materialising occurrences is left to an external scheduler.
func (l *SQLLedger) CreateRecurring(ctx context.Context, r types.RecurringTransaction) (types.RecurringTransaction, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now()
	}
	if r.NextDate.IsZero() {
		r.NextDate = r.StartDate
	}
	r.Active = true
	_, err := l.exec(ctx,
		`INSERT INTO recurring_transactions
		 (id, user_id, amount, type, category, description, frequency, start_date, next_date, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Amount.String(), string(r.Type), r.Category, r.Description, string(r.Frequency),
		formatTime(r.StartDate), formatTime(r.NextDate), boolInt(r.Active), formatTime(r.CreatedAt),
	)
	if err != nil {
		return types.RecurringTransaction{}, fmt.Errorf("failed to insert recurring transaction: %w", err)
	}
	logging.LedgerDebug("recurring created: id=%s frequency=%s amount=%s", r.ID, r.Frequency, r.Amount)
	return r, nil
}
