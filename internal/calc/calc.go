// Package calc holds the pure calendar arithmetic behind every countdown:
// remaining/elapsed breakdowns, progress fractions and recurrence rules.
// All functions operate on local wall-clock values; the location of the
// "now" argument decides what local midnight means.
package calc

import "time"

const (
	msSecond int64 = 1_000
	msMinute int64 = 60 * msSecond
	msHour   int64 = 60 * msMinute
	msDay    int64 = 24 * msHour
)

// DefaultGrace is how long a fixed-date event stays in count-up mode
// after its instant before rolling over to next year's occurrence.
const DefaultGrace = 24 * time.Hour

// Countdown is the breakdown of the distance between a target and now.
// Days and TotalHours are unbounded; the other fields are taken modulo
// the next larger unit.
type Countdown struct {
	Days         int64 `json:"days"`
	Hours        int64 `json:"hours"`
	Minutes      int64 `json:"minutes"`
	Seconds      int64 `json:"seconds"`
	Centiseconds int64 `json:"centiseconds"`
	TotalHours   int64 `json:"total_hours"`
	IsPast       bool  `json:"is_past"`
	// DiffMillis is the signed target-now difference.
	DiffMillis int64 `json:"diff_ms"`
}

// TotalSeconds returns floor(|target-now| / 1s).
func (c Countdown) TotalSeconds() int64 {
	return c.Days*86_400 + c.Hours*3_600 + c.Minutes*60 + c.Seconds
}

// CalcCountdown computes the countdown from now to target. A target in the
// past yields the elapsed time with IsPast set.
func CalcCountdown(target, now time.Time) Countdown {
	diff := target.UnixMilli() - now.UnixMilli()
	abs := diff
	if abs < 0 {
		abs = -abs
	}

	return Countdown{
		Days:         abs / msDay,
		Hours:        (abs % msDay) / msHour,
		Minutes:      (abs % msHour) / msMinute,
		Seconds:      (abs % msMinute) / msSecond,
		Centiseconds: (abs % msSecond) / 10,
		TotalHours:   abs / msHour,
		IsPast:       diff < 0,
		DiffMillis:   diff,
	}
}

// Progress returns how much of [start, end] has elapsed at now, as an
// integer percentage floored and clamped into [0, 100]. A degenerate span
// (end <= start) is always 0.
func Progress(start, end, now time.Time) int {
	total := end.UnixMilli() - start.UnixMilli()
	if total <= 0 {
		return 0
	}
	elapsed := now.UnixMilli() - start.UnixMilli()
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 100
	}
	// elapsed*100 overflows int64 only for spans of millions of years.
	if elapsed > (1<<63-1)/100 {
		return int(elapsed / (total / 100))
	}
	return int(elapsed * 100 / total)
}

// Midnight returns 00:00 of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping the wall-clock time. This is
// not the same as adding n*24h across a DST change.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NextWeekend returns the next Saturday 00:00 strictly after today. On a
// Saturday this is the following Saturday, never the same day.
func NextWeekend(now time.Time) time.Time {
	today := Midnight(now)
	delta := int(time.Saturday) - int(today.Weekday())
	if delta <= 0 {
		delta += 7
	}
	return AddDays(today, delta)
}

// YearFunc resolves an event's instant for a given calendar year.
type YearFunc func(year int, loc *time.Location) time.Time

// FixedOccurrence picks which yearly occurrence of a fixed-date event is
// relevant at now. Within grace after this year's instant the event keeps
// that instant (count-up); after the grace window it moves to next year.
// start is the previous cycle's instant, the anchor for Progress.
func FixedOccurrence(forYear YearFunc, now time.Time, grace time.Duration) (target, start time.Time, countUp bool) {
	loc := now.Location()
	year := now.Year()

	t1 := forYear(year, loc)
	switch {
	case now.After(t1.Add(grace)):
		target = forYear(year+1, loc)
		start = t1
	case !now.Before(t1):
		target = t1
		start = forYear(year-1, loc)
		countUp = true
	default:
		target = t1
		start = forYear(year-1, loc)
	}

	// Single-occurrence resolvers ignore the year; anchor one year back so
	// progress still has a usable span.
	if !start.Before(target) {
		start = target.AddDate(-1, 0, 0)
	}
	return target, start, countUp
}
