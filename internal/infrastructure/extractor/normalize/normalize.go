// Package normalize holds the value cleaning shared by every report extractor.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

var absentMarkers = map[string]struct{}{
	"N/A":  {},
	"NA":   {},
	"-":    {},
	"NULL": {},
	"NONE": {},
}

// dateLayouts are tried in order. Month/day/year must stay ahead of day/month/year.
var dateLayouts = []string{
	"January 2, 2006",
	"1/2/2006",
	"2006-1-2",
	"2-Jan-2006",
	"2/1/2006",
	"2006/1/2",
}

// CleanNumeric parses report quantities such as "1,234.56". The second result is false
// for blanks, placeholder markers and anything that is not a plain decimal number.
func CleanNumeric(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false
	}
	if _, ok := absentMarkers[strings.ToUpper(s)]; ok {
		return 0, false
	}

	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" || !isDecimalLiteral(s) {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// CleanInt is CleanNumeric truncated to an integer. Values outside the int64 range are absent.
func CleanInt(value string) (int64, bool) {
	n, ok := CleanNumeric(value)
	if !ok || n >= 1<<63 || n < -(1<<63) {
		return 0, false
	}
	return int64(n), true
}

// ParseDate accepts the date spellings found in exchange reports.
func ParseDate(text string) (domain.Date, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return domain.Date{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return domain.DateOf(t), true
		}
	}
	return domain.Date{}, false
}

// isDecimalLiteral rejects the hex, underscore and Inf/NaN spellings strconv would accept.
func isDecimalLiteral(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
		case r == '+' || r == '-':
			if i != 0 && s[i-1] != 'e' && s[i-1] != 'E' {
				return false
			}
		case r == 'e' || r == 'E':
			if digits == 0 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}
