package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extraction patterns for people, places, projects, and date references in
// entry content. Heuristic by nature: misses are fine, matches feed the
// entity histogram and the temporal recommendation strategy.
var (
	namePattern     = regexp.MustCompile(`\b[A-Z][a-z]+ (?:[A-Z][a-z]+\s?)+\b`)
	locationPattern = regexp.MustCompile(`\b(?:at|in|to) ([A-Z][a-z]+(?: [A-Z][a-z]+)*)\b`)
	projectPattern  = regexp.MustCompile(`\b(?:project|working on) "([^"]+)"`)

	numericDatePattern  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})\b`)
	monthDayPattern     = regexp.MustCompile(`\b([A-Za-z]+) (\d{1,2})(?:st|nd|rd|th)?(?:,? (\d{4}))?\b`)
	relativeDatePattern = regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|last week|next week|last month|next month)\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ExtractEntities pulls names, locations, and quoted project titles from
// text, deduplicated in first-seen order.
func ExtractEntities(text string) []string {
	var entities []string

	for _, m := range namePattern.FindAllString(text, -1) {
		entities = append(entities, strings.TrimSpace(m))
	}
	for _, m := range locationPattern.FindAllStringSubmatch(text, -1) {
		entities = append(entities, m[1])
	}
	for _, m := range projectPattern.FindAllStringSubmatch(text, -1) {
		entities = append(entities, m[1])
	}

	seen := make(map[string]bool, len(entities))
	deduped := entities[:0]
	for _, e := range entities {
		if seen[e] {
			continue
		}
		seen[e] = true
		deduped = append(deduped, e)
	}
	return deduped
}

// DateRef is a date mentioned in text, with a confidence weight: explicit
// dates and day-precision relatives carry 1.0, vaguer spans less.
type DateRef struct {
	Time   time.Time
	Weight float64
}

// ExtractDateRefs finds date mentions in text, resolved against ref.
// Unparseable candidates are dropped silently; extraction never fails.
func ExtractDateRefs(text string, ref time.Time) []DateRef {
	var refs []DateRef

	for _, m := range numericDatePattern.FindAllStringSubmatch(text, -1) {
		if t, ok := parseNumericDate(m[1], m[2], m[3]); ok {
			refs = append(refs, DateRef{Time: t, Weight: 1.0})
		}
	}
	for _, m := range monthDayPattern.FindAllStringSubmatch(text, -1) {
		if t, ok := parseMonthDay(m[1], m[2], m[3], ref); ok {
			refs = append(refs, DateRef{Time: t, Weight: 1.0})
		}
	}
	for _, m := range relativeDatePattern.FindAllStringSubmatch(text, -1) {
		if r, ok := parseRelativeDate(m[1], ref); ok {
			refs = append(refs, r)
		}
	}
	return refs
}

// parseNumericDate reads the first component as the day; if that yields an
// impossible date the day and month swap. Impossible either way fails.
func parseNumericDate(first, second, yearStr string) (time.Time, bool) {
	a, err1 := strconv.Atoi(first)
	b, err2 := strconv.Atoi(second)
	y, err3 := strconv.Atoi(yearStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	year := expandYear(y)

	if t, ok := makeDate(year, b, a); ok {
		return t, true
	}
	return makeDate(year, a, b)
}

func parseMonthDay(monthName, dayStr, yearStr string, ref time.Time) (time.Time, bool) {
	month, ok := monthsByName[strings.ToLower(monthName)]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}

	year := ref.Year()
	if yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			return time.Time{}, false
		}
		year = expandYear(y)
	}
	return makeDate(year, int(month), day)
}

func parseRelativeDate(expr string, ref time.Time) (DateRef, bool) {
	switch strings.ToLower(expr) {
	case "yesterday":
		return DateRef{Time: ref.AddDate(0, 0, -1), Weight: 1.0}, true
	case "today":
		return DateRef{Time: ref, Weight: 1.0}, true
	case "tomorrow":
		return DateRef{Time: ref.AddDate(0, 0, 1), Weight: 1.0}, true
	case "last week":
		return DateRef{Time: ref.AddDate(0, 0, -7), Weight: 0.8}, true
	case "next week":
		return DateRef{Time: ref.AddDate(0, 0, 7), Weight: 0.8}, true
	case "last month":
		return DateRef{Time: ref.AddDate(0, 0, -30), Weight: 0.7}, true
	case "next month":
		return DateRef{Time: ref.AddDate(0, 0, 30), Weight: 0.7}, true
	}
	return DateRef{}, false
}

// expandYear maps two-digit years onto 2000–2049 / 1950–1999.
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// makeDate builds a local midnight date, rejecting values time.Date would
// normalize away (Feb 30 becoming Mar 1).
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
