// Package calendar turns calendar clicks into canonical Saturday–Sunday
// weekend pairs and maintains an ordered selection of them.
//
// Dates are civil calendar days. Every time.Time produced here is midnight UTC
// so that adding days never crosses a DST boundary; the location of the
// caller's clock only matters in Today.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// DateLayout is the wire format of every date in the API.
const DateLayout = "2006-01-02"

// ErrNotWeekend is returned by PairFor for Monday through Friday.
var ErrNotWeekend = errors.New("calendar: date is not a Saturday or Sunday")

// datePattern enforces the fixed-width shape before time.Parse checks that the
// day actually exists. time.Parse alone accepts a single-digit day.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date builds the civil date year-month-day. Out-of-range values normalise the
// way time.Date does, so Date(2025, 1, 0) is 2024-12-31.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the civil date of now in now's own location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string and rejects impossible days such as
// 2025-02-30.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("calendar: %q is not YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: %w", err)
	}
	return t, nil
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// IsWeekendDay reports whether d falls on a Saturday or Sunday.
func IsWeekendDay(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// PairFor returns the weekend d belongs to: a Saturday pairs with the next
// day, a Sunday with the previous one.
func PairFor(d time.Time) (domain.Weekend, error) {
	d = Today(d)
	switch d.Weekday() {
	case time.Saturday:
		return domain.Weekend{Start: FormatDate(d), End: FormatDate(d.AddDate(0, 0, 1))}, nil
	case time.Sunday:
		return domain.Weekend{Start: FormatDate(d.AddDate(0, 0, -1)), End: FormatDate(d)}, nil
	default:
		return domain.Weekend{}, ErrNotWeekend
	}
}

// Toggle removes w from selection if an entry with the same start and end is
// present, and appends it otherwise. The order of the remaining entries is
// preserved and selection itself is never modified.
func Toggle(selection []domain.Weekend, w domain.Weekend) []domain.Weekend {
	out := make([]domain.Weekend, 0, len(selection)+1)
	removed := false
	for _, s := range selection {
		if !removed && s == w {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if !removed {
		out = append(out, w)
	}
	return out
}

// IsSelected reports whether d is the start or end of any selected weekend.
func IsSelected(selection []domain.Weekend, d time.Time) bool {
	ds := FormatDate(d)
	for _, w := range selection {
		if w.Start == ds || w.End == ds {
			return true
		}
	}
	return false
}
