package perception

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finassist/internal/types"
)

// Clock returns the current instant.
type Clock func() time.Time

// HeuristicExtractor maps raw text to at most one action without any I/O.
// For a fixed clock the same text always yields the same result.
type HeuristicExtractor struct {
	now   Clock
	rules []heuristicRule
}

// heuristicRule is one (predicate, extractor) pair. The first rule whose
// predicate holds decides the outcome, even when its extractor finds nothing.
type heuristicRule struct {
	family  string
	match   func(m *message) bool
	extract func(m *message) (types.FinancialAction, bool)
}

// message is the pre-processed form of the text shared by all rules.
type message struct {
	raw        string
	norm       string
	amountText string
	now        time.Time
}

// NewHeuristicExtractor creates an extractor. A nil clock uses time.Now.
func NewHeuristicExtractor(clock Clock) *HeuristicExtractor {
	if clock == nil {
		clock = time.Now
	}
	h := &HeuristicExtractor{now: clock}
	h.rules = []heuristicRule{
		{"delete", func(m *message) bool { return deleteWords.has(m.norm) && m.refersToEntry() }, extractDelete},
		{"modify", func(m *message) bool { return modifyWords.has(m.norm) && m.refersToEntry() }, extractModify},
		{"budget", func(m *message) bool { return budgetWords.has(m.norm) }, extractBudget},
		{"goal", func(m *message) bool { return goalWords.has(m.norm) }, extractGoal},
		{"recurring", func(m *message) bool { _, ok := recurringFrequency(m.norm); return ok }, extractRecurring},
		{"investment", func(m *message) bool { return investmentWords.has(m.norm) }, extractInvestment},
		{"habits", func(m *message) bool { return habitWords.has(m.norm) }, extractHabits},
		{"statistics", func(m *message) bool { return statisticsWords.has(m.norm) }, extractStatistics},
		{"search", func(m *message) bool { return searchWords.has(m.norm) }, extractSearch},
		{"add", matchAdd, extractAdd},
	}
	return h
}

// Extract returns the action the text describes, if any.
func (h *HeuristicExtractor) Extract(text string) (types.FinancialAction, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	m := &message{
		raw:        text,
		norm:       normalizeText(text),
		amountText: stripDateLiterals(text),
		now:        h.now(),
	}
	for _, rule := range h.rules {
		if rule.match(m) {
			return rule.extract(m)
		}
	}
	return nil, false
}

// Family reports which rule family claims the text, or "" if none.
func (h *HeuristicExtractor) Family(text string) string {
	m := &message{raw: text, norm: normalizeText(text), amountText: stripDateLiterals(text), now: h.now()}
	for _, rule := range h.rules {
		if rule.match(m) {
			return rule.family
		}
	}
	return ""
}

var (
	deleteWords = phraseSet{"delete", "remove", "erase", "supprime", "supprimer", "supprimé", "efface", "effacer", "retire"}
	modifyWords = phraseSet{
		"modify", "change", "update", "edit", "correct", "fix", "modifie", "modifier", "changer",
		"corrige", "corriger", "mettre à jour", "mets à jour",
	}
	// entryWords point at a transaction that already exists.
	entryWords = phraseSet{
		"transaction", "expense", "income", "entry", "record", "payment", "last", "latest", "previous",
		"i added", "i recorded", "dépense", "depense", "revenu", "entrée", "opération", "operation",
		"paiement", "dernier", "dernière", "derniere", "précédent", "précédente", "j'ai ajouté", "j'ai enregistré",
	}
	// purchaseVerbs describe a new spend, so the message records rather than edits.
	purchaseVerbs = phraseSet{
		"spent", "spend", "paid", "pay", "bought", "buy", "purchased", "dépensé", "payé", "acheté", "achete",
	}
	budgetWords = phraseSet{"budget"}
	goalWords   = phraseSet{
		"goal", "objectif", "save", "saving", "save for", "saving for", "save up", "économiser", "economiser",
		"épargner", "epargner", "mettre de côté",
	}
	listWords = phraseSet{
		"show", "list", "see", "view", "display", "what are", "my budgets", "my goals", "how are",
		"progress", "status", "affiche", "afficher", "montre", "montrer", "voir", "liste", "lister",
		"quels", "quelles", "mes budgets", "mes objectifs", "progrès",
	}
	investmentWords = phraseSet{
		"invest", "invested", "investi", "investir", "investment", "investissement", "placement",
		"stocks", "shares", "bourse", "crypto", "bitcoin", "etf",
	}
	habitWords = phraseSet{
		"habit", "habitude", "spending pattern", "analyze", "analyse", "analyser", "where does my money go",
		"où va mon argent", "tendance", "trend", "insight",
	}
	statisticsWords = phraseSet{
		"statistics", "stats", "statistiques", "summary", "résumé", "bilan", "report", "rapport",
		"overview", "aperçu", "how much did i spend", "how much have i spent", "combien ai je dépensé",
		"combien j'ai dépensé", "balance", "solde", "breakdown",
	}
	searchWords = phraseSet{
		"show", "list", "find", "search", "display", "transactions", "history",
		"historique", "affiche", "afficher", "montre", "cherche", "chercher", "rechercher", "trouve",
		"liste", "voir", "what did i spend", "my expenses", "mes dépenses", "my income", "mes revenus",
	}
	addWords = phraseSet{
		"spent", "spend", "paid", "pay", "bought", "buy", "cost", "add", "added", "purchase",
		"purchased", "dépensé", "depense", "dépense", "payé", "paye", "acheté", "achete", "ajoute",
		"ajouter", "ajouté",
	}
	expenseWords = phraseSet{"expense", "dépense", "depense", "spent", "spending"}
	minWords     = phraseSet{"over", "more than", "above", "at least", "plus de", "supérieur", "au moins"}
	maxWords     = phraseSet{"under", "less than", "below", "at most", "moins de", "inférieur", "au plus"}

	recurringRules = []struct {
		freq  types.Frequency
		words phraseSet
	}{
		{types.FrequencyDaily, phraseSet{"every day", "each day", "daily", "per day", "chaque jour", "tous les jours", "par jour", "quotidien"}},
		{types.FrequencyWeekly, phraseSet{"every week", "each week", "weekly", "per week", "chaque semaine", "toutes les semaines", "par semaine", "hebdomadaire"}},
		{types.FrequencyYearly, phraseSet{"every year", "each year", "yearly", "annually", "per year", "chaque année", "tous les ans", "par an", "annuel", "annuelle"}},
		{types.FrequencyMonthly, phraseSet{
			"every month", "each month", "monthly", "per month", "chaque mois", "tous les mois", "par mois",
			"mensuel", "mensuelle", "recurring", "récurrent", "abonnement", "subscription",
		}},
	}

	newValueMarker = regexp.MustCompile(`(?i)(?:^|\s)(?:to|into|en|à|par)\s*$`)
	prepositions   = regexp.MustCompile(`(?i)(?:^|\s)(?:for|at|on|pour|chez|au|aux|à)\s+`)
	investTarget   = regexp.MustCompile(`(?i)(?:^|\s)(?:in|into|dans|en)\s+`)
	periodWords    = regexp.MustCompile(`(?i)\b(?:this|last|previous|current) (?:month|week|year)\b|\b(?:ce|le) mois(?: dernier)?\b|\bcette (?:semaine|année)\b|\bevery (?:day|week|month|year)\b|\b(?:per|par|chaque) (?:day|week|month|year|jour|semaine|mois|an)\b|\b(?:monthly|weekly|daily|yearly)\b`)
	trailingMarker = regexp.MustCompile(`(?i)\s+(?:for|at|on|in|of|from|pour|chez|au|aux|à|le|du|de|en)$`)
	leadingArticle = regexp.MustCompile(`(?i)^(?:(?:the|a|an|my|some|le|la|les|un|une|des|du|de|mon|ma|mes)\s+|l['’]\s*)`)
	spaces         = regexp.MustCompile(`\s+`)
)

// refersToEntry reports whether an edit verb targets an existing entry.
// "I spent 300 MAD to fix my car" names a new expense, not a correction.
func (m *message) refersToEntry() bool {
	return entryWords.has(m.norm) && !purchaseVerbs.has(m.norm)
}

func matchAdd(m *message) bool {
	return addWords.has(m.norm) || incomeKeywords.has(m.norm) || inferCategory(m.norm) != types.CategoryOther
}

func recurringFrequency(norm string) (types.Frequency, bool) {
	for _, r := range recurringRules {
		if r.words.has(norm) {
			return r.freq, true
		}
	}
	return "", false
}

func (m *message) txTypeAndCategory() (types.TransactionType, string) {
	if incomeKeywords.has(m.norm) {
		return types.TransactionIncome, inferIncomeCategory(m.norm)
	}
	return types.TransactionExpense, inferCategory(m.norm)
}

func (m *message) explicitDay() (*time.Time, *time.Time) {
	day, ok := inferDate(m.raw, m.now)
	if !ok {
		return nil, nil
	}
	from, to := dayBounds(day)
	return &from, &to
}

func extractAdd(m *message) (types.FinancialAction, bool) {
	amount, ok := firstAmount(m.amountText)
	if !ok {
		return nil, false
	}
	txType, category := m.txTypeAndCategory()
	date, _ := inferDate(m.raw, m.now)
	return types.AddTransaction{
		Amount:      amount,
		Type:        txType,
		Category:    category,
		Description: extractDescription(m.raw, prepositions),
		Date:        date,
	}, true
}

func extractSearch(m *message) (types.FinancialAction, bool) {
	f := types.TransactionFilter{}
	if c := inferCategory(m.norm); c != types.CategoryOther && c != types.CategorySalary {
		f.Category = c
	}
	switch {
	case incomeKeywords.has(m.norm):
		f.Type = types.TransactionIncome
	case expenseWords.has(m.norm):
		f.Type = types.TransactionExpense
	}
	if from, to, ok := inferPeriod(m.norm, m.now); ok {
		f.From, f.To = &from, &to
	}
	if amount, ok := firstAmount(m.amountText); ok {
		switch {
		case minWords.has(m.norm):
			f.MinAmount = &amount
		case maxWords.has(m.norm):
			f.MaxAmount = &amount
		default:
			f.Amount = &amount
		}
	}
	return types.SearchTransactions{Filter: f}, true
}

func (m *message) matchFilter(amount *decimal.Decimal) types.TransactionFilter {
	f := types.TransactionFilter{Amount: amount}
	if c := inferCategory(m.norm); c != types.CategoryOther {
		f.Category = c
	}
	f.From, f.To = m.explicitDay()
	return f
}

func extractModify(m *message) (types.FinancialAction, bool) {
	amounts := findAmounts(m.amountText)
	if len(amounts) == 0 {
		return nil, false
	}

	newIdx := -1
	for i, a := range amounts {
		if newValueMarker.MatchString(m.amountText[:a.start]) {
			newIdx = i
		}
	}
	if newIdx < 0 {
		newIdx = len(amounts) - 1
	}

	newAmount := amounts[newIdx].value
	var matchAmount *decimal.Decimal
	for i, a := range amounts {
		if i != newIdx {
			v := a.value
			matchAmount = &v
			break
		}
	}
	return types.ModifyTransaction{Match: m.matchFilter(matchAmount), NewAmount: &newAmount}, true
}

func extractDelete(m *message) (types.FinancialAction, bool) {
	var amount *decimal.Decimal
	if a, ok := firstAmount(m.amountText); ok {
		amount = &a
	}
	return types.DeleteTransaction{Match: m.matchFilter(amount)}, true
}

func extractBudget(m *message) (types.FinancialAction, bool) {
	if listWords.has(m.norm) {
		return types.ListBudgets{}, true
	}
	limit, ok := firstAmount(m.amountText)
	if !ok {
		return nil, false
	}
	period := types.FrequencyMonthly
	if f, ok := recurringFrequency(m.norm); ok {
		period = f
	}
	start, _ := dayBounds(m.now)
	if period == types.FrequencyMonthly {
		start, _ = MonthBounds(m.now)
	}
	return types.CreateBudget{Category: inferCategory(m.norm), Limit: limit, Period: period, StartDate: start}, true
}

func extractGoal(m *message) (types.FinancialAction, bool) {
	if listWords.has(m.norm) {
		return types.ListGoals{}, true
	}
	target, ok := firstAmount(m.amountText)
	if !ok {
		return nil, false
	}
	name := extractPhrase(m.raw, prepositions)
	if name == "" {
		name = "Savings"
	}
	g := types.CreateGoal{Name: name, Target: target}
	if d, ok := parseDateLiteral(m.raw, m.now); ok {
		g.Deadline = &d
	}
	return g, true
}

func extractRecurring(m *message) (types.FinancialAction, bool) {
	amount, ok := firstAmount(m.amountText)
	if !ok {
		return nil, false
	}
	freq, _ := recurringFrequency(m.norm)
	txType, category := m.txTypeAndCategory()
	start, _ := inferDate(m.raw, m.now)
	return types.CreateRecurringTransaction{
		Amount:      amount,
		Type:        txType,
		Category:    category,
		Description: extractDescription(m.raw, prepositions),
		Frequency:   freq,
		StartDate:   start,
	}, true
}

func extractInvestment(m *message) (types.FinancialAction, bool) {
	amount, ok := firstAmount(m.amountText)
	if !ok {
		return nil, false
	}
	invType := investmentType(m.norm)
	name := extractPhrase(m.raw, investTarget)
	if name == "" {
		name = invType
	}
	date, _ := inferDate(m.raw, m.now)
	return types.CreateInvestment{Name: name, Type: invType, Amount: amount, Date: date}, true
}

func investmentType(norm string) string {
	switch {
	case phraseSet{"crypto", "bitcoin", "btc", "ethereum", "eth"}.has(norm):
		return "crypto"
	case phraseSet{"stock", "shares", "action", "bourse", "etf", "fund", "fonds"}.has(norm):
		return "stocks"
	case phraseSet{"real estate", "immobilier", "property", "apartment", "appartement", "terrain"}.has(norm):
		return "real_estate"
	case phraseSet{"savings account", "compte épargne", "livret", "deposit", "dépôt"}.has(norm):
		return "savings"
	default:
		return "other"
	}
}

func extractHabits(m *message) (types.FinancialAction, bool) {
	from, to, _ := inferPeriod(m.norm, m.now)
	return types.AnalyzeHabits{From: from, To: to}, true
}

func extractStatistics(m *message) (types.FinancialAction, bool) {
	from, to, _ := inferPeriod(m.norm, m.now)
	return types.Statistics{From: from, To: to}, true
}

// extractDescription returns the cleaned phrase after the first preposition
// that yields one, else the raw text truncated to 50 runes. Never empty.
func extractDescription(raw string, markers *regexp.Regexp) string {
	if d := extractPhrase(raw, markers); d != "" {
		return d
	}
	return truncateRunes(strings.TrimSpace(raw), 50)
}

// extractPhrase returns the first non-empty cleaned text following a marker.
func extractPhrase(raw string, markers *regexp.Regexp) string {
	for _, loc := range markers.FindAllStringIndex(raw, -1) {
		if d := cleanPhrase(raw[loc[1]:]); d != "" {
			return truncateRunes(d, 50)
		}
	}
	return ""
}

func cleanPhrase(s string) string {
	s = dateLiteral.ReplaceAllString(s, " ")
	s = dateWords.ReplaceAllString(s, " ")
	s = periodWords.ReplaceAllString(s, " ")
	s = amountCurrencyAfter.ReplaceAllString(s, " ")
	s = amountCurrencyBefore.ReplaceAllString(s, " ")
	s = amountBare.ReplaceAllString(s, " ")
	s = currencyToken.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	for {
		trimmed := strings.TrimSpace(leadingArticle.ReplaceAllString(s, ""))
		trimmed = strings.TrimSpace(trailingMarker.ReplaceAllString(trimmed, ""))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return strings.Trim(s, " .,;:!?'\"")
}
