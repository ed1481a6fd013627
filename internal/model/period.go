package model

import (
	"fmt"
	"time"
)

// DateFormat is the calendar date layout used at every boundary.
const DateFormat = "2006-01-02"

// Period is a calendar month.
type Period struct {
	Month int
	Year  int
}

// NewPeriod builds a validated period.
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing d.
func PeriodOf(d time.Time) Period {
	return Period{Month: int(d.Month()), Year: d.Year()}
}

// ParsePeriod parses "2025-11".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Reason: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	return PeriodOf(t), nil
}

// Validate checks the month range and a plausible year.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return &ValidationError{Field: "month", Reason: fmt.Sprintf("must be 1..12, got %d", p.Month)}
	}
	if p.Year < 1900 || p.Year > 9999 {
		return &ValidationError{Field: "year", Reason: fmt.Sprintf("out of range: %d", p.Year)}
	}
	return nil
}

// First returns the first day of the month.
func (p Period) First() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last day of the month.
func (p Period) Last() time.Time {
	return p.First().AddDate(0, 1, -1)
}

// Contains reports whether d falls on a day of the month. Only the calendar
// date of d is considered.
func (p Period) Contains(d time.Time) bool {
	return d.Year() == p.Year && int(d.Month()) == p.Month
}

// AddMonths shifts the period by n months (negative goes back).
func (p Period) AddMonths(n int) Period {
	return PeriodOf(p.First().AddDate(0, n, 0))
}

// Before reports whether p is strictly earlier than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// MonthsUntil counts the months from p to q, inclusive of both ends.
// It returns 0 when q is before p.
func (p Period) MonthsUntil(q Period) int {
	n := (q.Year-p.Year)*12 + (q.Month - p.Month) + 1
	if n < 0 {
		return 0
	}
	return n
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Date builds a calendar date at UTC midnight.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// TruncateDate drops the time-of-day and location of t, keeping its calendar date.
func TruncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return Date(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return t, nil
}
