package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "countdown/internal/log"
)

// Entry is a VEVENT reduced to what a holiday feed carries: a name, a day
// and optionally a yearly recurrence.
type Entry struct {
	UID      string
	Summary  string
	Category string // first CATEGORIES value, lowercased

	// Start is the entry's day at local midnight for all-day entries, or
	// the exact start otherwise.
	Start  time.Time
	AllDay bool

	RawRRule string
	ExDates  []time.Time
}

// ParseFeed parses an ICS payload into entries. Dates without a time part
// are read as all-day in loc. Broken VEVENTs are logged and skipped.
func ParseFeed(src Source, body []byte, loc *time.Location) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)
	for _, ve := range cal.Events() {
		e, perr := parseEntry(ve, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", perr.Error())
			continue
		}
		entries = append(entries, e)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "entries", len(entries))
	return entries, nil
}

func parseEntry(ve *ical.VEvent, loc *time.Location) (Entry, error) {
	var out Entry

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if out.Summary == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		first, _, _ := strings.Cut(p.Value, ",")
		out.Category = strings.ToLower(strings.TrimSpace(first))
	}

	dt := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dt == nil || dt.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	isDate := !strings.Contains(dt.Value, "T")
	if vs, ok := dt.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}

	if isDate {
		start, err := parseICSTime(dt.Value, loc)
		if err != nil {
			return out, err
		}
		out.Start = start
		out.AllDay = true
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start.In(loc)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
