package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts that carry no day/month ambiguity. Numeric slash forms are handled separately.
var unambiguousLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"Mon, 02 Jan 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
}

var numericTriple = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)

// ParseDueDate parses a free-text due date. Returns nil when nothing matches.
//
// For A/B/YYYY (or A-B-YYYY): A > 12 means D/M/Y, B > 12 means M/D/Y,
// and when both are <= 12 the result is D/M/Y.
func ParseDueDate(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}

	for _, layout := range unambiguousLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}

	m := numericTriple.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	day, month := a, b
	if a <= 12 && b > 12 {
		day, month = b, a
	}
	return calendarDate(year, month, day)
}

func calendarDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead.
	if d.Day() != day || int(d.Month()) != month {
		return nil
	}
	return &d
}
