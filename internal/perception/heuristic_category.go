package perception

import (
	"strings"

	"finassist/internal/types"
)

// categoryRules is evaluated in order; the first category with a matching
// keyword wins.
var categoryRules = []struct {
	category string
	keywords phraseSet
}{
	{types.CategorySalary, phraseSet{"salary", "salaire", "paycheck", "payslip", "paie", "wage"}},
	{types.CategoryHousing, phraseSet{
		"rent", "loyer", "electricity", "électricité", "electricite", "water bill", "facture d'eau",
		"internet", "wifi", "mortgage", "housing", "logement", "syndic", "lydec", "redal", "amendis",
	}},
	{types.CategoryFood, phraseSet{
		"restaurant", "café", "cafe", "coffee", "lunch", "dinner", "breakfast", "déjeuner", "dejeuner",
		"dîner", "diner", "petit-déjeuner", "food", "groceries", "grocery", "courses", "supermarché",
		"supermarche", "supermarket", "marjane", "carrefour", "pizza", "burger", "nourriture", "repas",
		"snack", "boulangerie", "bakery", "épicerie", "epicerie", "tacos", "sushi",
	}},
	{types.CategoryTransport, phraseSet{
		"taxi", "uber", "careem", "bus", "train", "tram", "tramway", "metro", "métro", "fuel", "gas",
		"essence", "gasoil", "carburant", "parking", "transport", "péage", "peage", "toll", "oncf",
	}},
	{types.CategoryHealth, phraseSet{
		"pharmacy", "pharmacie", "doctor", "médecin", "medecin", "hospital", "hôpital", "hopital",
		"medicine", "médicament", "medicament", "dentist", "dentiste", "health", "santé", "clinic",
		"clinique", "gym",
	}},
	{types.CategoryEntertainment, phraseSet{
		"cinema", "cinéma", "movie", "film", "netflix", "spotify", "concert", "game", "jeu", "jeux",
		"sortie", "bar", "party", "fête", "loisir", "loisirs", "entertainment", "divertissement",
	}},
	{types.CategoryShopping, phraseSet{
		"clothes", "vêtements", "vetements", "shoes", "chaussures", "shopping", "amazon", "jumia",
		"zara", "electronics", "phone", "téléphone", "telephone", "laptop",
	}},
	{types.CategoryEducation, phraseSet{
		"school", "école", "ecole", "university", "université", "universite", "tuition", "book",
		"livre", "formation", "training", "education", "éducation",
	}},
	{types.CategoryTravel, phraseSet{
		"hotel", "hôtel", "flight", "avion", "voyage", "travel", "trip", "airbnb", "vacances",
		"vacation", "holiday",
	}},
	{types.CategoryInvestment, phraseSet{"stocks", "bourse", "crypto", "bitcoin", "etf", "shares"}},
}

var incomeKeywords = phraseSet{
	"salary", "salaire", "paycheck", "paie", "received", "reçu", "recu", "earned", "gagné", "gagne",
	"income", "revenu", "bonus", "freelance", "got paid", "was paid", "touché",
	"refund", "remboursement",
}

// inferCategory returns the first matching category or Other.
func inferCategory(norm string) string {
	for _, rule := range categoryRules {
		if rule.keywords.has(norm) {
			return rule.category
		}
	}
	return types.CategoryOther
}

// inferIncomeCategory restricts income to Salary or Other.
func inferIncomeCategory(norm string) string {
	if categoryRules[0].keywords.has(norm) {
		return types.CategorySalary
	}
	return types.CategoryOther
}

// normalizeCategory maps a free-form label onto a known category name when
// it matches one, case-insensitively or via the keyword table.
func normalizeCategory(label string) string {
	for _, rule := range categoryRules {
		if strings.EqualFold(label, rule.category) {
			return rule.category
		}
	}
	if strings.EqualFold(label, types.CategoryOther) {
		return types.CategoryOther
	}
	if c := inferCategory(normalizeText(label)); c != types.CategoryOther {
		return c
	}
	return strings.TrimSpace(label)
}
