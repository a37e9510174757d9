package perception

import (
	"strings"
	"unicode"
)

// normalizeText lower-cases text and rewrites it as space-separated
// letter/digit tokens padded with spaces, so phrases match on whole words.
func normalizeText(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}

// phraseSet is a list of keywords matched against normalized text. Single
// words also match their plural forms.
type phraseSet []string

func (p phraseSet) match(norm string) (string, bool) {
	for _, kw := range p {
		k := strings.TrimSpace(normalizeText(kw))
		if k == "" {
			continue
		}
		if strings.Contains(norm, " "+k+" ") {
			return kw, true
		}
		if !strings.Contains(k, " ") {
			for _, suffix := range []string{"s", "es", "x"} {
				if strings.Contains(norm, " "+k+suffix+" ") {
					return kw, true
				}
			}
		}
	}
	return "", false
}

func (p phraseSet) has(norm string) bool {
	_, ok := p.match(norm)
	return ok
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
