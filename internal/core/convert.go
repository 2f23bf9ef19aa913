package core

// convert.go provides the cell coercion rules for imported lead data.
//
// Imported spreadsheets come from banks and agencies with their own habits:
//   - Several date formats (ISO timestamps, US, EU, "Jan 2, 2006")
//   - Rupee/dollar symbols, thousands separators and accounting negatives
//   - yes/no, true/false and 1/0 for booleans
//   - Excel formula prefixes (="value") and stray quotes
//
// Coercion never fails loudly. Unparseable values become the field's empty
// value so that one bad cell cannot abort an import.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NA is the sentinel written for "no value" in every CSV column.
const NA = "NA"

// numericRegex validates that a string is a plain decimal number after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are moved
// back a century.
var TwoDigitYearPivot = 20

var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "02-Jan-2006",
		"20060102",
	}
)

// IsNA reports whether a cell carries no value: empty, the NA sentinel, or
// the "undefined"/"null" text that browser exports leak into files.
func IsNA(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == NA || strings.EqualFold(s, "undefined") || strings.EqualFold(s, "null")
}

// CleanCell removes common spreadsheet artifacts from an unquoted cell:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes one layer of surrounding double quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		return s[2 : len(s)-1]
	}
	return stripQuotes(s)
}

// CleanHeader normalises header text before matching: BOM, whitespace and one
// layer of surrounding quotes are removed.
func CleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(stripQuotes(strings.TrimSpace(s)))
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseInt parses the leading integer of s the way a lenient form field
// would: "34", "34 years" and "34.9" all give 34. Thousands separators are
// ignored. ok is false when s has no leading digits.
func ParseInt(s string) (n int, ok bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseNumeric parses a decimal amount. Handles currency symbols, thousands
// separators and accounting format (parentheses for negative).
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(
		"₹", "", // Rupee
		"Rs.", "",
		"INR", "",
		"$", "",
		"€", "", // Euro
		"£", "", // Pound
		",", "",
	).Replace(s)
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool reports whether s is one of the accepted truthy spellings:
// "true", "1" or "yes", case-insensitively. Everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// ParseDate parses timestamps and calendar dates in the formats seen in lead
// files. Dates without a zone are taken as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// FormatDate renders t for export in UTC. Nanosecond precision is kept so
// that export followed by import reproduces the same instant.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
