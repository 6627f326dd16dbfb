// Package workday classifies calendar days as working or non-working and
// finds runs of consecutive days off.
package workday

import (
	"time"

	"countdown/internal/calc"
)

// HolidayLookup answers whether a date is a declared public holiday. It is
// the only boundary between day classification and holiday data; any
// provider can be plugged in behind it.
type HolidayLookup interface {
	IsHoliday(date time.Time) bool
}

// LookupFunc adapts a plain function to HolidayLookup.
type LookupFunc func(date time.Time) bool

func (f LookupFunc) IsHoliday(date time.Time) bool { return f(date) }

// IsNonWorkingDay reports whether date is a Saturday, a Sunday, or a
// holiday according to lookup. A nil lookup knows no holidays.
func IsNonWorkingDay(date time.Time, lookup HolidayLookup) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return lookup != nil && lookup.IsHoliday(date)
}

// Predicate is a day classifier used by NextStreak.
type Predicate func(day time.Time) bool

// NonWorking returns IsNonWorkingDay bound to lookup.
func NonWorking(lookup HolidayLookup) Predicate {
	return func(day time.Time) bool { return IsNonWorkingDay(day, lookup) }
}

const (
	DefaultMinLength    = 3
	DefaultHorizonYears = 2
)

type streakOptions struct {
	minLength    int
	horizonYears int
}

// StreakOption tunes NextStreak.
type StreakOption func(*streakOptions)

func WithMinLength(n int) StreakOption {
	return func(o *streakOptions) {
		if n > 0 {
			o.minLength = n
		}
	}
}

func WithHorizonYears(n int) StreakOption {
	return func(o *streakOptions) {
		if n > 0 {
			o.horizonYears = n
		}
	}
}

// NextStreak returns the first day of the next run of at least minLength
// consecutive days for which isOff holds. Candidates start the day after
// from's date. The scan never looks past from + horizon years, even if
// isOff is true for every day; ok=false means no qualifying run exists
// inside the horizon.
//
// When a run is too short the scan resumes right after it, so each day is
// classified at most twice.
//
// Today is never a candidate: if today already opens a run, the result is
// tomorrow (a day inside that run) when the rest of it is long enough.
func NextStreak(from time.Time, isOff Predicate, opts ...StreakOption) (start time.Time, ok bool) {
	o := streakOptions{minLength: DefaultMinLength, horizonYears: DefaultHorizonYears}
	for _, opt := range opts {
		opt(&o)
	}
	if isOff == nil {
		return time.Time{}, false
	}

	limit := from.AddDate(o.horizonYears, 0, 0)
	day := calc.AddDays(calc.Midnight(from), 1)

	for day.Before(limit) {
		if !isOff(day) {
			day = calc.AddDays(day, 1)
			continue
		}

		runStart := day
		length := 0
		for day.Before(limit) && isOff(day) {
			length++
			day = calc.AddDays(day, 1)
			if length >= o.minLength {
				return runStart, true
			}
		}
		// day is now the first working day after the run (or the limit).
	}
	return time.Time{}, false
}

// Scanner resolves the next streak of days off for a fixed lookup. Its Next
// method has the shape of a dynamic event resolver.
type Scanner struct {
	Lookup       HolidayLookup
	MinLength    int
	HorizonYears int
}

func (s Scanner) Next(now time.Time) (time.Time, bool) {
	return NextStreak(now, NonWorking(s.Lookup),
		WithMinLength(s.MinLength),
		WithHorizonYears(s.HorizonYears),
	)
}
