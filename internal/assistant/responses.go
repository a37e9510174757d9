package assistant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finassist/internal/types"
)

// maxListed caps the entities spelled out in a reply.
const maxListed = 5

const dateLayout = "2006-01-02"

// Responder renders deterministic replies for action records.
type Responder struct {
	currency string
}

// NewResponder creates a responder that formats amounts in currency.
func NewResponder(currency string) *Responder {
	return &Responder{currency: currency}
}

func (r *Responder) money(d decimal.Decimal) string {
	if r.currency == "" {
		return d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + r.currency
}

// Render describes rec.
func (r *Responder) Render(rec *types.ActionRecord) string {
	switch rec.Kind {
	case types.ActionAddTransaction:
		tx := rec.Transaction
		verb := "Recorded an expense of"
		if tx.Type == types.TransactionIncome {
			verb = "Recorded an income of"
		}
		return fmt.Sprintf("%s %s in %s (%s) on %s.", verb, r.money(tx.Amount), tx.Category, tx.Description, tx.Date.Format(dateLayout))

	case types.ActionModifyTransaction:
		prev, tx := rec.Previous, rec.Transaction
		var changes []string
		if !prev.Amount.Equal(tx.Amount) {
			changes = append(changes, fmt.Sprintf("amount %s → %s", r.money(prev.Amount), r.money(tx.Amount)))
		}
		if prev.Type != tx.Type {
			changes = append(changes, fmt.Sprintf("type %s → %s", prev.Type, tx.Type))
		}
		if prev.Category != tx.Category {
			changes = append(changes, fmt.Sprintf("category %s → %s", prev.Category, tx.Category))
		}
		if prev.Description != tx.Description {
			changes = append(changes, fmt.Sprintf("description %q → %q", prev.Description, tx.Description))
		}
		if !prev.Date.Equal(tx.Date) {
			changes = append(changes, fmt.Sprintf("date %s → %s", prev.Date.Format(dateLayout), tx.Date.Format(dateLayout)))
		}
		if len(changes) == 0 {
			return fmt.Sprintf("The %s transaction already had those values.", tx.Description)
		}
		return fmt.Sprintf("Updated the %s transaction from %s: %s.", tx.Description, tx.Date.Format(dateLayout), strings.Join(changes, ", "))

	case types.ActionDeleteTransaction:
		tx := rec.Transaction
		return fmt.Sprintf("Deleted the %s transaction of %s (%s) from %s.", tx.Category, r.money(tx.Amount), tx.Description, tx.Date.Format(dateLayout))

	case types.ActionSearchTransactions:
		if len(rec.Transactions) == 0 {
			return "No transactions match your search."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d transaction(s):", len(rec.Transactions))
		for i, tx := range rec.Transactions {
			if i == maxListed {
				fmt.Fprintf(&b, "\n…and %d more.", len(rec.Transactions)-maxListed)
				break
			}
			sign := "-"
			if tx.Type == types.TransactionIncome {
				sign = "+"
			}
			fmt.Fprintf(&b, "\n• %s %s%s %s (%s)", tx.Date.Format(dateLayout), sign, r.money(tx.Amount), tx.Category, tx.Description)
		}
		return b.String()

	case types.ActionCreateBudget:
		b := rec.Budget
		return fmt.Sprintf("Created a %s budget of %s for %s starting %s.", b.Period, r.money(b.Limit), b.Category, b.StartDate.Format(dateLayout))

	case types.ActionListBudgets:
		if len(rec.Budgets) == 0 {
			return "You have no active budgets."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d active budget(s):", len(rec.Budgets))
		for i, bg := range rec.Budgets {
			if i == maxListed {
				fmt.Fprintf(&b, "\n…and %d more.", len(rec.Budgets)-maxListed)
				break
			}
			fmt.Fprintf(&b, "\n• %s: %s %s", bg.Category, r.money(bg.Limit), bg.Period)
		}
		return b.String()

	case types.ActionCreateGoal:
		g := rec.Goal
		s := fmt.Sprintf("Created the goal %q with a target of %s", g.Name, r.money(g.Target))
		if g.Deadline != nil {
			s += " by " + g.Deadline.Format(dateLayout)
		}
		return s + "."

	case types.ActionListGoals:
		if len(rec.Goals) == 0 {
			return "You have no active goals."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d active goal(s):", len(rec.Goals))
		for i, g := range rec.Goals {
			if i == maxListed {
				fmt.Fprintf(&b, "\n…and %d more.", len(rec.Goals)-maxListed)
				break
			}
			fmt.Fprintf(&b, "\n• %s: %s of %s (%s%%)", g.Name, r.money(g.Current), r.money(g.Target), g.Progress().String())
		}
		return b.String()

	case types.ActionCreateInvestment:
		inv := rec.Investment
		return fmt.Sprintf("Recorded an investment of %s in %s (%s) on %s.", r.money(inv.Amount), inv.Name, inv.Type, inv.Date.Format(dateLayout))

	case types.ActionCreateRecurringTransaction:
		rt := rec.Recurring
		return fmt.Sprintf("Scheduled a %s %s of %s for %s, next on %s.", rt.Frequency, rt.Type, r.money(rt.Amount), rt.Description, rt.NextDate.Format(dateLayout))

	case types.ActionStatistics:
		s := rec.Stats
		var b strings.Builder
		fmt.Fprintf(&b, "From %s to %s: income %s, expenses %s, net %s across %d transaction(s).",
			s.From.Format(dateLayout), s.To.Format(dateLayout), r.money(s.Income), r.money(s.Expense), r.money(s.Net), s.TransactionCount)
		for i, c := range s.ByCategory {
			if i == maxListed {
				break
			}
			fmt.Fprintf(&b, "\n• %s: %s", c.Category, r.money(c.Amount))
		}
		return b.String()

	case types.ActionAnalyzeHabits:
		h := rec.Habits
		var b strings.Builder
		fmt.Fprintf(&b, "From %s to %s you spent %s per day on average.", h.From.Format(dateLayout), h.To.Format(dateLayout), r.money(h.AverageDaily))
		if h.LargestExpense != nil {
			fmt.Fprintf(&b, " Your largest expense was %s (%s).", r.money(h.LargestExpense.Amount), h.LargestExpense.Description)
		}
		for _, in := range h.Insights {
			b.WriteString("\n• " + in)
		}
		return b.String()
	}
	return "Done."
}

// RenderError explains an action failure. Nothing was changed.
func (r *Responder) RenderError(err *ActionError) string {
	switch err.Kind {
	case ActionErrNotFound:
		switch err.Action {
		case types.ActionModifyTransaction:
			return "I couldn't find a transaction to update. Nothing was changed."
		case types.ActionDeleteTransaction:
			return "I couldn't find a transaction to delete. Nothing was changed."
		}
		return "I couldn't find what you referred to. Nothing was changed."
	case ActionErrValidation:
		if err.Detail != "" {
			return "I couldn't do that: " + err.Detail + ". Nothing was changed."
		}
	}
	return "I couldn't complete that request. Nothing was changed."
}
