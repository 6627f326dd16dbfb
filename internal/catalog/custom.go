package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "countdown/internal/log"
	"countdown/internal/model"
)

// CustomSpec is a user-defined yearly event, e.g. a birthday, described by
// an RRULE such as "FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=4;BYHOUR=9".
type CustomSpec struct {
	ID            string
	Name          string
	Emoji         string
	Color         string
	RRule         string
	SpecialEffect bool
}

const customPrefix = "custom-"

// CustomEvent compiles spec into a fixed-date event whose occurrence for a
// year is the rule's first instance inside that year.
func CustomEvent(spec CustomSpec) (model.Event, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return model.Event{}, fmt.Errorf("custom event %q: id is empty", spec.Name)
	}
	rule := strings.TrimSpace(spec.RRule)
	// Validate once; each resolution builds its own rule since
	// DTStart mutates the RRule.
	if _, err := rrule.StrToRRule(rule); err != nil {
		return model.Event{}, fmt.Errorf("custom event %q: %w", id, err)
	}

	name := spec.Name
	if name == "" {
		name = id
	}
	return model.Event{
		ID:            customPrefix + id,
		Name:          name,
		Emoji:         spec.Emoji,
		Color:         spec.Color,
		Category:      model.CategoryDefault,
		SpecialEffect: spec.SpecialEffect,
		Target:        model.FixedTarget(firstInYear(rule)),
	}, nil
}

// CustomEvents compiles all specs, logging and skipping invalid ones.
func CustomEvents(specs []CustomSpec) []model.Event {
	out := make([]model.Event, 0, len(specs))
	for _, s := range specs {
		ev, err := CustomEvent(s)
		if err != nil {
			appLog.Error("custom event skipped", err, "id", s.ID)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func firstInYear(rule string) func(year int, loc *time.Location) time.Time {
	return func(year int, loc *time.Location) time.Time {
		r, err := rrule.StrToRRule(rule)
		if err != nil {
			return time.Time{}
		}
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		r.DTStart(from)
		occ := r.Between(from, from.AddDate(1, 0, 0), true)
		if len(occ) == 0 {
			return time.Time{}
		}
		return occ[0]
	}
}
