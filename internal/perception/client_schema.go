package perception

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finassist/internal/types"
)

var (
	stringProp = func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}
	numberProp = func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "number", "description": desc}
	}
	enumProp = func(desc string, values ...string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc, "enum": values}
	}
	dateProp = func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc + " (YYYY-MM-DD)"}
	}
)

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func matchProps(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"match_description": stringProp("Words from the description of the transaction to change"),
		"match_amount":      numberProp("Amount of the transaction to change"),
		"match_category":    stringProp("Category of the transaction to change"),
		"match_date":        dateProp("Date of the transaction to change"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var typeEnum = []string{string(types.TransactionExpense), string(types.TransactionIncome)}
var frequencyEnum = []string{
	string(types.FrequencyDaily), string(types.FrequencyWeekly),
	string(types.FrequencyMonthly), string(types.FrequencyYearly),
}

// FinancialTools returns one tool definition per action kind.
func FinancialTools() []ToolDefinition {
	period := map[string]interface{}{
		"from": dateProp("Start of the period"),
		"to":   dateProp("End of the period"),
	}
	return []ToolDefinition{
		{
			Name:        string(types.ActionAddTransaction),
			Description: "Record a new expense or income the user reports.",
			InputSchema: objectSchema(map[string]interface{}{
				"amount":      numberProp("Positive amount"),
				"type":        enumProp("expense or income", typeEnum...),
				"category":    stringProp("Category such as Food, Transport, Housing, Health, Salary, Other"),
				"description": stringProp("Short description"),
				"date":        dateProp("Date of the transaction, default today"),
			}, "amount", "type"),
		},
		{
			Name:        string(types.ActionSearchTransactions),
			Description: "List the user's transactions matching optional filters.",
			InputSchema: objectSchema(map[string]interface{}{
				"type":       enumProp("expense or income", typeEnum...),
				"category":   stringProp("Category"),
				"text":       stringProp("Words in the description"),
				"min_amount": numberProp("Minimum amount"),
				"max_amount": numberProp("Maximum amount"),
				"from":       dateProp("Earliest date"),
				"to":         dateProp("Latest date"),
				"limit":      map[string]interface{}{"type": "integer", "description": "Maximum results"},
			}),
		},
		{
			Name:        string(types.ActionModifyTransaction),
			Description: "Change an existing transaction. Identify it with match_* fields and give the new values.",
			InputSchema: objectSchema(matchProps(map[string]interface{}{
				"new_amount":      numberProp("New amount"),
				"new_type":        enumProp("New type", typeEnum...),
				"new_category":    stringProp("New category"),
				"new_description": stringProp("New description"),
				"new_date":        dateProp("New date"),
			})),
		},
		{
			Name:        string(types.ActionDeleteTransaction),
			Description: "Delete an existing transaction identified by match_* fields. With no fields the latest transaction is deleted.",
			InputSchema: objectSchema(matchProps(nil)),
		},
		{
			Name:        string(types.ActionCreateBudget),
			Description: "Set a spending limit for a category.",
			InputSchema: objectSchema(map[string]interface{}{
				"category":   stringProp("Category the budget applies to"),
				"limit":      numberProp("Positive spending limit"),
				"period":     enumProp("Budget period, default monthly", frequencyEnum...),
				"start_date": dateProp("First day of the budget"),
			}, "category", "limit"),
		},
		{
			Name:        string(types.ActionCreateGoal),
			Description: "Create a savings goal.",
			InputSchema: objectSchema(map[string]interface{}{
				"name":     stringProp("What the user is saving for"),
				"target":   numberProp("Positive target amount"),
				"current":  numberProp("Amount already saved"),
				"deadline": dateProp("Target date"),
			}, "name", "target"),
		},
		{
			Name:        string(types.ActionCreateInvestment),
			Description: "Record an investment.",
			InputSchema: objectSchema(map[string]interface{}{
				"name":   stringProp("Asset name"),
				"type":   stringProp("Asset type such as stocks, crypto, real_estate, savings"),
				"amount": numberProp("Positive amount invested"),
				"date":   dateProp("Date of the investment"),
			}, "name", "amount"),
		},
		{
			Name:        string(types.ActionCreateRecurringTransaction),
			Description: "Register an income or expense that repeats.",
			InputSchema: objectSchema(map[string]interface{}{
				"amount":      numberProp("Positive amount"),
				"type":        enumProp("expense or income", typeEnum...),
				"category":    stringProp("Category"),
				"description": stringProp("Short description"),
				"frequency":   enumProp("Repeat frequency, default monthly", frequencyEnum...),
				"start_date":  dateProp("First occurrence"),
			}, "amount", "type"),
		},
		{
			Name:        string(types.ActionListGoals),
			Description: "Show the user's savings goals.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        string(types.ActionListBudgets),
			Description: "Show the user's budgets.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        string(types.ActionStatistics),
			Description: "Summarise income and spending over a period, default this month.",
			InputSchema: objectSchema(period),
		},
		{
			Name:        string(types.ActionAnalyzeHabits),
			Description: "Analyse spending habits over a period, default the last 90 days.",
			InputSchema: objectSchema(period),
		},
	}
}

// toolArgs wraps decoded tool input with typed accessors.
type toolArgs struct {
	m   map[string]interface{}
	now time.Time
}

func (a toolArgs) str(key string) string {
	switch v := a.m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (a toolArgs) amount(key string) (decimal.Decimal, bool, error) {
	raw, ok := a.m[key]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case float32:
		return decimal.NewFromFloat32(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil, err
	case string:
		if d, ok := parseAmountToken(v); ok {
			return d, true, nil
		}
		return decimal.Zero, false, fmt.Errorf("%s: not a number: %q", key, v)
	default:
		return decimal.Zero, false, fmt.Errorf("%s: unsupported type %T", key, raw)
	}
}

func (a toolArgs) amountPtr(key string) (*decimal.Decimal, error) {
	d, ok, err := a.amount(key)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (a toolArgs) requiredAmount(key string) (decimal.Decimal, error) {
	d, ok, err := a.amount(key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("missing required %s", key)
	}
	return d, nil
}

func (a toolArgs) date(key string) (*time.Time, error) {
	s := a.str(key)
	if s == "" {
		return nil, nil
	}
	t, ok := parseDateArg(s, a.now)
	if !ok {
		return nil, fmt.Errorf("%s: unrecognised date %q", key, s)
	}
	return &t, nil
}

func (a toolArgs) dateOrNow(key string) (time.Time, error) {
	t, err := a.date(key)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return a.now, nil
	}
	return *t, nil
}

func (a toolArgs) txType(key string, fallback types.TransactionType) types.TransactionType {
	t := types.TransactionType(strings.ToLower(a.str(key)))
	if t.Valid() {
		return t
	}
	return fallback
}

func (a toolArgs) frequency(key string) types.Frequency {
	switch f := types.Frequency(strings.ToLower(a.str(key))); f {
	case types.FrequencyDaily, types.FrequencyWeekly, types.FrequencyMonthly, types.FrequencyYearly:
		return f
	default:
		return types.FrequencyMonthly
	}
}

func (a toolArgs) category(key string) string {
	if c := a.str(key); c != "" {
		return normalizeCategory(c)
	}
	return ""
}

func (a toolArgs) matchFilter() (types.TransactionFilter, error) {
	f := types.TransactionFilter{
		Text:     a.str("match_description"),
		Category: a.category("match_category"),
	}
	amt, err := a.amountPtr("match_amount")
	if err != nil {
		return f, err
	}
	f.Amount = amt
	day, err := a.date("match_date")
	if err != nil {
		return f, err
	}
	if day != nil {
		from, to := dayBounds(*day)
		f.From, f.To = &from, &to
	}
	return f, nil
}

// DecodeToolCall maps a provider tool call back onto a typed action.
func DecodeToolCall(call ToolCall, now time.Time) (types.FinancialAction, error) {
	a := toolArgs{m: call.Input, now: now}
	if a.m == nil {
		a.m = map[string]interface{}{}
	}

	switch types.ActionKind(call.Name) {
	case types.ActionAddTransaction:
		amount, err := a.requiredAmount("amount")
		if err != nil {
			return nil, err
		}
		date, err := a.dateOrNow("date")
		if err != nil {
			return nil, err
		}
		txType := a.txType("type", types.TransactionExpense)
		category := a.category("category")
		if category == "" {
			category = types.CategoryOther
		}
		desc := a.str("description")
		if desc == "" {
			desc = category
		}
		return types.AddTransaction{Amount: amount, Type: txType, Category: category, Description: desc, Date: date}, nil

	case types.ActionSearchTransactions:
		f := types.TransactionFilter{
			Type:     a.txType("type", ""),
			Category: a.category("category"),
			Text:     a.str("text"),
		}
		var err error
		if f.MinAmount, err = a.amountPtr("min_amount"); err != nil {
			return nil, err
		}
		if f.MaxAmount, err = a.amountPtr("max_amount"); err != nil {
			return nil, err
		}
		if f.From, err = a.date("from"); err != nil {
			return nil, err
		}
		if f.To, err = a.date("to"); err != nil {
			return nil, err
		}
		if f.To != nil {
			_, end := dayBounds(*f.To)
			f.To = &end
		}
		if l, err := strconv.Atoi(a.str("limit")); err == nil && l > 0 {
			f.Limit = l
		}
		return types.SearchTransactions{Filter: f}, nil

	case types.ActionModifyTransaction:
		match, err := a.matchFilter()
		if err != nil {
			return nil, err
		}
		m := types.ModifyTransaction{
			Match:          match,
			NewType:        a.txType("new_type", ""),
			NewCategory:    a.category("new_category"),
			NewDescription: a.str("new_description"),
		}
		if m.NewAmount, err = a.amountPtr("new_amount"); err != nil {
			return nil, err
		}
		if m.NewDate, err = a.date("new_date"); err != nil {
			return nil, err
		}
		if m.NewAmount == nil && m.NewType == "" && m.NewCategory == "" && m.NewDescription == "" && m.NewDate == nil {
			return nil, fmt.Errorf("modify_transaction without any new value")
		}
		return m, nil

	case types.ActionDeleteTransaction:
		match, err := a.matchFilter()
		if err != nil {
			return nil, err
		}
		return types.DeleteTransaction{Match: match}, nil

	case types.ActionCreateBudget:
		limit, err := a.requiredAmount("limit")
		if err != nil {
			return nil, err
		}
		category := a.category("category")
		if category == "" {
			return nil, fmt.Errorf("missing required category")
		}
		start, err := a.dateOrNow("start_date")
		if err != nil {
			return nil, err
		}
		return types.CreateBudget{Category: category, Limit: limit, Period: a.frequency("period"), StartDate: start}, nil

	case types.ActionCreateGoal:
		target, err := a.requiredAmount("target")
		if err != nil {
			return nil, err
		}
		name := a.str("name")
		if name == "" {
			return nil, fmt.Errorf("missing required name")
		}
		current, _, err := a.amount("current")
		if err != nil {
			return nil, err
		}
		deadline, err := a.date("deadline")
		if err != nil {
			return nil, err
		}
		return types.CreateGoal{Name: name, Target: target, Current: current, Deadline: deadline}, nil

	case types.ActionCreateInvestment:
		amount, err := a.requiredAmount("amount")
		if err != nil {
			return nil, err
		}
		date, err := a.dateOrNow("date")
		if err != nil {
			return nil, err
		}
		name := a.str("name")
		invType := strings.ToLower(a.str("type"))
		if invType == "" {
			invType = "other"
		}
		if name == "" {
			name = invType
		}
		return types.CreateInvestment{Name: name, Type: invType, Amount: amount, Date: date}, nil

	case types.ActionCreateRecurringTransaction:
		amount, err := a.requiredAmount("amount")
		if err != nil {
			return nil, err
		}
		start, err := a.dateOrNow("start_date")
		if err != nil {
			return nil, err
		}
		category := a.category("category")
		if category == "" {
			category = types.CategoryOther
		}
		desc := a.str("description")
		if desc == "" {
			desc = category
		}
		return types.CreateRecurringTransaction{
			Amount:      amount,
			Type:        a.txType("type", types.TransactionExpense),
			Category:    category,
			Description: desc,
			Frequency:   a.frequency("frequency"),
			StartDate:   start,
		}, nil

	case types.ActionListGoals:
		return types.ListGoals{}, nil

	case types.ActionListBudgets:
		return types.ListBudgets{}, nil

	case types.ActionStatistics, types.ActionAnalyzeHabits:
		from, err := a.date("from")
		if err != nil {
			return nil, err
		}
		to, err := a.date("to")
		if err != nil {
			return nil, err
		}
		var s, e time.Time
		if from != nil {
			s = *from
		}
		if to != nil {
			_, e = dayBounds(*to)
		}
		if types.ActionKind(call.Name) == types.ActionStatistics {
			return types.Statistics{From: s, To: e}, nil
		}
		return types.AnalyzeHabits{From: s, To: e}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

// parseToolArguments decodes a JSON argument string as sent by
// OpenAI-compatible APIs.
func parseToolArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return m, nil
}
