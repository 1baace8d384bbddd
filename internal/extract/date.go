package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

var (
	// Keeps digits, dots, hyphens, whitespace, and letters so every date
	// shape below survives sanitizing. \p{L}, not \w: month names are
	// Cyrillic.
	dateNoiseRe = regexp.MustCompile(`[^0-9.\s\p{L}-]`)
	daysAgoRe   = regexp.MustCompile(`(\d+)\s*дн`)
	hoursAgoRe  = regexp.MustCompile(`(\d+)\s*час`)
)

var dateRules = []rule[time.Time]{
	{
		re: regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`),
		parse: func(m []string) (time.Time, bool) {
			return calendarDate(atoi(m[3]), atoi(m[2]), atoi(m[1]))
		},
	},
	{
		re: regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`),
		parse: func(m []string) (time.Time, bool) {
			mo, ok := months[strings.ToLower(m[2])]
			if !ok {
				return time.Time{}, false
			}
			return calendarDate(atoi(m[3]), int(mo), atoi(m[1]))
		},
	},
	{
		re: regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
		parse: func(m []string) (time.Time, bool) {
			return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		},
	},
}

// PublishDate resolves relative phrases ("сегодня", "вчера", "N дней назад",
// "N часов назад") against the current time, then tries absolute formats in
// fixed order: DD.MM.YYYY, "15 марта 2023", YYYY-MM-DD. Dates that do not
// exist on the calendar yield no value.
func PublishDate(text string) (time.Time, bool) {
	clean := strings.TrimSpace(dateNoiseRe.ReplaceAllString(text, ""))
	if clean == "" {
		return time.Time{}, false
	}
	n := now()
	low := strings.ToLower(clean)
	if strings.Contains(low, "сегодня") {
		return noon(n), true
	}
	if strings.Contains(low, "вчера") {
		return noon(n.AddDate(0, 0, -1)), true
	}
	if strings.Contains(low, "назад") {
		if m := daysAgoRe.FindStringSubmatch(low); m != nil {
			return n.AddDate(0, 0, -atoi(m[1])), true
		}
		if m := hoursAgoRe.FindStringSubmatch(low); m != nil {
			return n.Add(-time.Duration(atoi(m[1])) * time.Hour), true
		}
	}
	return firstAccepted(dateRules, clean)
}

func noon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
}

// calendarDate rejects impossible combinations instead of letting time.Date
// normalize them (31.02 must not become March 3rd).
func calendarDate(y, mo, d int) (time.Time, bool) {
	if y < 1 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.Local)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
