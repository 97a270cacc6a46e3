package birthday

import (
	"fmt"
	"time"
)

// LeapPolicy decides where a February 29 birthday is observed in non-leap years.
type LeapPolicy string

const (
	// LeapFeb28 observes the birthday on February 28.
	LeapFeb28 LeapPolicy = "feb28"
	// LeapMar1 observes the birthday on March 1.
	LeapMar1 LeapPolicy = "mar1"
)

// ParseLeapPolicy validates a configured policy name. Empty means LeapFeb28.
func ParseLeapPolicy(s string) (LeapPolicy, error) {
	switch LeapPolicy(s) {
	case "", LeapFeb28:
		return LeapFeb28, nil
	case LeapMar1:
		return LeapMar1, nil
	default:
		return "", fmt.Errorf("unknown leap policy %q", s)
	}
}

// OccurrenceIn returns the date on which the birthday is observed in year.
func (d Date) OccurrenceIn(year int, policy LeapPolicy) Date {
	if d.Month == time.February && d.Day == 29 && !isLeap(year) {
		if policy == LeapMar1 {
			return Date{Year: year, Month: time.March, Day: 1}
		}
		return Date{Year: year, Month: time.February, Day: 28}
	}
	return Date{Year: year, Month: d.Month, Day: d.Day}
}

// Transition is a state change of a member relative to their birthday.
type Transition int

const (
	// PreBirthday fires the day before the birthday.
	PreBirthday Transition = iota + 1
	// OnBirthday fires on the birthday itself.
	OnBirthday
	// PostBirthday fires the day after the birthday.
	PostBirthday
)

func (t Transition) String() string {
	switch t {
	case PreBirthday:
		return "pre_birthday"
	case OnBirthday:
		return "birthday"
	case PostBirthday:
		return "post_birthday"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// Status describes where a day falls relative to a birthday's nearest occurrences.
type Status struct {
	Next          Date
	Previous      Date
	DaysToNext    int
	DaysSinceLast int
}

// Evaluate computes the next occurrence (today included) and the last strictly
// earlier occurrence of birthday relative to today.
func Evaluate(today, birthday Date, policy LeapPolicy) Status {
	thisYear := birthday.OccurrenceIn(today.Year, policy)

	var st Status
	if !thisYear.Before(today) {
		st.Next = thisYear
		st.Previous = birthday.OccurrenceIn(today.Year-1, policy)
	} else {
		st.Next = birthday.OccurrenceIn(today.Year+1, policy)
		st.Previous = thisYear
	}
	st.DaysToNext = DaysBetween(today, st.Next)
	st.DaysSinceLast = DaysBetween(st.Previous, today)
	return st
}

// Transitions returns the transitions that fire for this status. The checks are
// independent; the result is ordered PreBirthday, OnBirthday, PostBirthday.
func (s Status) Transitions() []Transition {
	var out []Transition
	switch s.DaysToNext {
	case 1:
		out = append(out, PreBirthday)
	case 0:
		out = append(out, OnBirthday)
	}
	if s.DaysSinceLast == 1 {
		out = append(out, PostBirthday)
	}
	return out
}
