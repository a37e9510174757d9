package perception

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateLiteral = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)

	relativeDays = []struct {
		words  phraseSet
		offset int
	}{
		// Checked before "yesterday" since "avant-hier" contains "hier".
		{phraseSet{"day before yesterday", "avant-hier", "avant hier"}, -2},
		{phraseSet{"yesterday", "hier"}, -1},
		{phraseSet{"today", "aujourd'hui", "tonight", "ce soir", "ce matin", "this morning"}, 0},
	}

	dateWords = regexp.MustCompile(`(?i)\b(?:the day before yesterday|day before yesterday|avant[- ]hier|yesterday|hier|today|aujourd['’]hui|tonight|this morning|ce soir|ce matin)\b`)
)

// stripDateLiterals removes DD/MM[/YYYY] tokens so their digits are not
// mistaken for amounts.
func stripDateLiterals(text string) string {
	return dateLiteral.ReplaceAllString(text, " ")
}

// inferDate returns the date a message refers to and whether one was stated.
// Relative words win over literals; the default is now.
func inferDate(text string, now time.Time) (time.Time, bool) {
	norm := normalizeText(text)
	for _, rd := range relativeDays {
		if rd.words.has(norm) {
			return now.AddDate(0, 0, rd.offset), true
		}
	}
	if t, ok := parseDateLiteral(text, now); ok {
		return t, true
	}
	return now, false
}

// parseDateLiteral parses the first DD/MM[/YY[YY]] token. A missing year is
// the current one; two-digit years are 20YY.
func parseDateLiteral(text string, now time.Time) (time.Time, bool) {
	for _, m := range dateLiteral.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				year += 2000
			}
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		if t.Day() != day {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// parseDateArg parses a date given as a tool argument.
func parseDateArg(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, true
		}
	}
	if t, ok := inferDate(s, now); ok {
		return t, true
	}
	return time.Time{}, false
}

// dayBounds returns the first and last instant of t's day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthBounds returns the calendar month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// inferPeriod recognises period phrases for statistics and searches. ok is
// false when the message names no period.
func inferPeriod(norm string, now time.Time) (from, to time.Time, ok bool) {
	switch {
	case phraseSet{"last month", "mois dernier", "previous month", "mois précédent"}.has(norm):
		start, _ := MonthBounds(now)
		from, to = MonthBounds(start.AddDate(0, -1, 0))
		return from, to, true
	case phraseSet{"this month", "ce mois", "current month", "mois en cours"}.has(norm):
		from, to = MonthBounds(now)
		return from, to, true
	case phraseSet{"this week", "cette semaine"}.has(norm):
		offset := (int(now.Weekday()) + 6) % 7
		start, _ := dayBounds(now.AddDate(0, 0, -offset))
		_, end := dayBounds(now)
		return start, end, true
	case phraseSet{"this year", "cette année", "cette annee"}.has(norm):
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond), true
	case phraseSet{"day before yesterday", "avant hier"}.has(norm):
		from, to = dayBounds(now.AddDate(0, 0, -2))
		return from, to, true
	case phraseSet{"yesterday", "hier"}.has(norm):
		from, to = dayBounds(now.AddDate(0, 0, -1))
		return from, to, true
	case phraseSet{"today", "aujourd'hui"}.has(norm):
		from, to = dayBounds(now)
		return from, to, true
	}
	return time.Time{}, time.Time{}, false
}
