package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthRe = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

type dateRule struct {
	re    *regexp.Regexp
	build func(m []string) (time.Time, bool)
}

// Tried in order; the first rule that matches anywhere in the text wins.
var dateRules = []dateRule{
	{ // 2025-03-15
		re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		build: func(m []string) (time.Time, bool) {
			return ymd(m[1], monthFromNumber(m[2]), m[3])
		},
	},
	{ // March 15, 2025 / Mar 15th 2025
		re: regexp.MustCompile(`(?i)\b` + monthRe + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
		build: func(m []string) (time.Time, bool) {
			return ymd(m[3], months[strings.ToLower(m[1])], m[2])
		},
	},
	{ // 15 March 2025 / 15th of March, 2025
		re: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthRe + `,?\s+(\d{4})\b`),
		build: func(m []string) (time.Time, bool) {
			return ymd(m[3], months[strings.ToLower(m[2])], m[1])
		},
	},
	{ // 15/03/2025 (day first)
		re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		build: func(m []string) (time.Time, bool) {
			return ymd(m[3], monthFromNumber(m[2]), m[1])
		},
	},
	{ // November 2024: end of month
		re: regexp.MustCompile(`(?i)\b` + monthRe + `,?\s+(\d{4})\b`),
		build: func(m []string) (time.Time, bool) {
			y, err := strconv.Atoi(m[2])
			if err != nil {
				return time.Time{}, false
			}
			mon := months[strings.ToLower(m[1])]
			return time.Date(y, mon+1, 0, 0, 0, 0, 0, time.UTC), true
		},
	},
}

// ParseDeadline extracts a calendar date from free deadline text such as
// "Deadline: March 15, 2025 (11:59pm GMT)". Month-only dates resolve to the
// last day of the month. The second result is false when nothing parses.
func ParseDeadline(text string) (time.Time, bool) {
	if strings.TrimSpace(text) == "" {
		return time.Time{}, false
	}
	for _, r := range dateRules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			if t, ok := r.build(m); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func monthFromNumber(s string) time.Month {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return time.Month(n)
}

func ymd(year string, month time.Month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || month == 0 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
