package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "countdown/internal/log"
)

const defaultMaxPerEntry = 400

// Occurrence is a single dated instance of an Entry.
type Occurrence struct {
	UID      string
	Summary  string
	Category string
	Date     time.Time
}

// OccurrencesInYear expands entries into the instances that fall inside
// the given calendar year in loc. Recurring entries go through RRULE with
// EXDATE removal; the number of instances per entry is capped.
// Results are sorted by date, ties kept in feed order.
func OccurrencesInYear(entries []Entry, year int, loc *time.Location) []Occurrence {
	if loc == nil {
		loc = time.Local
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(1, 0, 0)

	out := make([]Occurrence, 0, len(entries))
	for _, e := range entries {
		for _, d := range expandEntry(e, from, to) {
			out = append(out, Occurrence{
				UID:      e.UID,
				Summary:  e.Summary,
				Category: e.Category,
				Date:     d,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// expandEntry returns the start instants of e within [from, to).
func expandEntry(e Entry, from, to time.Time) []time.Time {
	if e.RawRRule == "" {
		if !e.Start.Before(from) && e.Start.Before(to) {
			return []time.Time{e.Start}
		}
		return nil
	}

	r, err := rrule.StrToRRule(e.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", e.UID, "rrule", e.RawRRule)
		return nil
	}
	r.DTStart(e.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex.In(e.Start.Location()))
	}

	times := set.Between(from.In(e.Start.Location()), to.In(e.Start.Location()), true)
	if len(times) > defaultMaxPerEntry {
		appLog.Warn("ics: occurrences truncated", "uid", e.UID, "cap", defaultMaxPerEntry)
		times = times[:defaultMaxPerEntry]
	}

	out := make([]time.Time, 0, len(times))
	for _, t := range times {
		t = t.In(from.Location())
		if !t.Before(to) {
			continue
		}
		if e.AllDay {
			y, m, d := t.Date()
			t = time.Date(y, m, d, 0, 0, 0, 0, from.Location())
		}
		out = append(out, t)
	}
	return out
}
