// Package birthday implements the calendar arithmetic behind the gifting ritual:
// parsing stored and user-entered dates, resolving yearly occurrences and
// computing how far a given day is from the next and the previous birthday.
package birthday

import (
	"errors"
	"fmt"
	"time"
)

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02.01.2006"
	// inputLayout also accepts a single-digit day or month.
	inputLayout = "2.1.2006"
)

// ErrInvalidDate is returned when a date string cannot be parsed into a calendar date.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a Date, normalizing out-of-range values the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseISO parses the storage format YYYY-MM-DD.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	return FromTime(t), nil
}

// ParseDisplay parses the command format dd.mm.yyyy; d.m.yyyy is accepted too.
func ParseDisplay(s string) (Date, error) {
	t, err := time.Parse(inputLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	return FromTime(t), nil
}

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String renders the storage format YYYY-MM-DD.
func (d Date) String() string {
	return d.time().Format(isoLayout)
}

// Display renders the command format dd.mm.yyyy.
func (d Date) Display() string {
	return d.time().Format(displayLayout)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.time().Before(o.time())
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return FromTime(d.time().AddDate(0, 0, n))
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.time().Sub(a.time()).Hours() / 24)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
