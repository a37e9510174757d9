package perception

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// numberPattern matches 1500, 1 500, 1,500, 1500.50, 1500,5 and 1 500,50.
// Groups of three after a space, NBSP or comma are thousands; one or two
// digits after a point or comma are decimals.
const numberPattern = `(\d{1,3}(?:[ \x{00a0},]\d{3})+|\d+)(?:[.,](\d{1,2}))?`

const currencyWords = `mad|dhs|dh|dirhams|dirham|eur|euros|euro|usd|dollars|dollar`

var (
	amountCurrencyAfter  = regexp.MustCompile(`(?i)` + numberPattern + `\s*(?:(?:` + currencyWords + `)\b|[€$])`)
	amountCurrencyBefore = regexp.MustCompile(`(?i)(?:[€$]|\b(?:mad|usd|eur)\b)\s*` + numberPattern + `\b`)
	amountBare           = regexp.MustCompile(`\b` + numberPattern + `\b`)
	currencyToken        = regexp.MustCompile(`(?i)(?:\b(?:` + currencyWords + `)\b|[€$])`)
)

// amountMatch is one parsed amount and its byte span in the searched text.
type amountMatch struct {
	value      decimal.Decimal
	start, end int
}

// findAmounts returns parsed amounts in text order. Currency-tagged amounts
// come first when any exist. Date literals are removed by the caller.
func findAmounts(text string) []amountMatch {
	var tagged []amountMatch
	for _, re := range []*regexp.Regexp{amountCurrencyAfter, amountCurrencyBefore} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if v, ok := amountFromGroups(text, m); ok {
				tagged = append(tagged, amountMatch{value: v, start: m[0], end: m[1]})
			}
		}
	}
	if len(tagged) > 0 {
		sortAmounts(tagged)
		return tagged
	}

	var bare []amountMatch
	for _, m := range amountBare.FindAllStringSubmatchIndex(text, -1) {
		if v, ok := amountFromGroups(text, m); ok {
			bare = append(bare, amountMatch{value: v, start: m[0], end: m[1]})
		}
	}
	return bare
}

func sortAmounts(ms []amountMatch) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].start < ms[j].start })
}

func amountFromGroups(text string, m []int) (decimal.Decimal, bool) {
	if m[2] < 0 {
		return decimal.Zero, false
	}
	intPart := strings.NewReplacer(" ", "", "\u00a0", "", ",", "").Replace(text[m[2]:m[3]])
	num := intPart
	if m[4] >= 0 {
		num += "." + text[m[4]:m[5]]
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// firstAmount returns the first currency-tagged amount, else the first bare
// number.
func firstAmount(text string) (decimal.Decimal, bool) {
	ms := findAmounts(text)
	if len(ms) == 0 {
		return decimal.Zero, false
	}
	return ms[0].value, true
}

// parseAmountToken parses a standalone amount such as "1 500,50 MAD".
func parseAmountToken(s string) (decimal.Decimal, bool) {
	return firstAmount(stripDateLiterals(s))
}
