package perception

import (
	"fmt"
	"strings"
	"time"

	"finassist/internal/types"
)

// BuildSystemPrompt grounds a provider in the user's current finances.
func BuildSystemPrompt(snap types.FinancialSnapshot, now time.Time, toolsEnabled bool) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant for a single user's ledger. ")
	b.WriteString("Reply in the user's language, briefly and concretely.\n\n")

	fmt.Fprintf(&b, "Today is %s.\n", now.Format("Monday 2006-01-02"))
	fmt.Fprintf(&b, "Currency: %s\n", snap.Currency)
	fmt.Fprintf(&b, "Balance: %s %s\n", snap.Balance.StringFixed(2), snap.Currency)
	fmt.Fprintf(&b, "Income %s to %s: %s\n", snap.PeriodStart.Format("2006-01-02"), snap.PeriodEnd.Format("2006-01-02"), snap.IncomeThisPeriod.StringFixed(2))
	fmt.Fprintf(&b, "Expenses %s to %s: %s\n", snap.PeriodStart.Format("2006-01-02"), snap.PeriodEnd.Format("2006-01-02"), snap.ExpenseThisPeriod.StringFixed(2))
	fmt.Fprintf(&b, "Active budgets: %d\n", snap.ActiveBudgetCount)
	fmt.Fprintf(&b, "Active goals: %d\n\n", snap.ActiveGoalCount)

	if toolsEnabled {
		b.WriteString("When the message asks to record, change, delete, search or summarise money, call exactly one tool. ")
		b.WriteString("Use YYYY-MM-DD for dates and positive numbers for amounts. ")
		b.WriteString("If the message is not a financial request, answer in text without calling a tool.")
	} else {
		b.WriteString("Answer in plain text. Do not describe tool calls or JSON.")
	}
	return b.String()
}

// chatMessage is a provider-neutral history entry.
type chatMessage struct {
	Role    types.Role
	Content string
}

// historyMessages converts stored turns into chat messages followed by the
// new user message. Leading assistant turns are dropped since some APIs
// require the first message to come from the user.
func historyMessages(history []types.ConversationTurn, message string) []chatMessage {
	out := make([]chatMessage, 0, len(history)+1)
	for _, t := range history {
		if len(out) == 0 && t.Role != types.RoleUser {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, chatMessage{Role: t.Role, Content: t.Content})
	}
	return append(out, chatMessage{Role: types.RoleUser, Content: message})
}
