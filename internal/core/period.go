package core

import (
	"errors"
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period identifies a calendar month as "YYYY-MM".
type Period string

var ErrInvalidPeriod = errors.New("invalid period (expected YYYY-MM)")

// ParsePeriod validates s and returns it as a Period.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", ErrInvalidPeriod
	}
	return PeriodOf(t), nil
}

// PeriodOf returns the period containing t (in t's location).
func PeriodOf(t time.Time) Period {
	return Period(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Validate reports whether p is a well-formed period.
func (p Period) Validate() error {
	if _, err := time.Parse(periodLayout, string(p)); err != nil {
		return ErrInvalidPeriod
	}
	return nil
}

// Start returns midnight UTC of the first day of the period.
// An invalid period yields the zero time.
func (p Period) Start() time.Time {
	t, err := time.Parse(periodLayout, string(p))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Year returns the period's year.
func (p Period) Year() int {
	return p.Start().Year()
}

// Month returns the period's month (1-12).
func (p Period) Month() int {
	return int(p.Start().Month())
}

// Next returns the following month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// Before reports whether p is strictly earlier than o.
// "YYYY-MM" keys sort lexically in chronological order.
func (p Period) Before(o Period) bool {
	return p < o
}

func (p Period) String() string {
	return string(p)
}
