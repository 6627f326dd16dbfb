package dashboard

import (
	"slices"
	"time"

	"countdown/internal/calc"
	"countdown/internal/catalog"
	"countdown/internal/model"
	"countdown/internal/prefs"
)

// Card is one event as displayed at a given instant.
type Card struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Emoji         string         `json:"emoji,omitempty"`
	Color         string         `json:"color,omitempty"`
	Category      model.Category `json:"category"`
	SpecialEffect bool           `json:"special_effect,omitempty"`

	// Resolvable is false when the event's date could not be computed; the
	// remaining date fields are then zero.
	Resolvable bool           `json:"resolvable"`
	Target     time.Time      `json:"target,omitzero"`
	Start      time.Time      `json:"start,omitzero"`
	Countdown  calc.Countdown `json:"countdown"`
	Progress   int            `json:"progress"`
	CountUp    bool           `json:"count_up,omitempty"`
}

// View is everything a renderer needs for one frame.
type View struct {
	Now  time.Time `json:"now"`
	Hero *Card     `json:"hero,omitempty"`
	// Cards are the visible events in user order, hero excluded.
	Cards      []Card           `json:"cards"`
	Categories []model.Category `json:"categories"`
	BuiltAt    time.Time        `json:"catalog_built_at,omitzero"`
}

type Options struct {
	// Grace is the count-up window for fixed-date events.
	Grace time.Duration
}

func (o Options) grace() time.Duration {
	if o.Grace <= 0 {
		return calc.DefaultGrace
	}
	return o.Grace
}

// NewCard resolves ev at now.
func NewCard(ev model.Event, now time.Time, grace time.Duration) Card {
	c := Card{
		ID:            ev.ID,
		Name:          ev.Name,
		Emoji:         ev.Emoji,
		Color:         ev.Color,
		Category:      ev.Category,
		SpecialEffect: ev.SpecialEffect,
	}
	occ, err := ev.Target.Occurrence(now, grace)
	if err != nil {
		return c
	}
	c.Resolvable = true
	c.Target = occ.Target
	c.Start = occ.Start
	c.CountUp = occ.CountUp
	c.Countdown = calc.CalcCountdown(occ.Target, now)
	if occ.CountUp {
		c.Progress = 100
	} else {
		c.Progress = calc.Progress(occ.Start, occ.Target, now)
	}
	return c
}

// Compute builds the view for now. Visible ids that are not in the catalog
// are skipped.
func Compute(now time.Time, cat *catalog.Catalog, snap prefs.Snapshot, opts Options) View {
	grace := opts.grace()

	ids := snap.VisibleIDs()
	events := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		if ev, ok := cat.Get(id); ok {
			events = append(events, ev)
		}
	}

	v := View{
		Now:        now,
		Cards:      make([]Card, 0, len(events)),
		Categories: cat.Categories(),
	}
	if cat != nil {
		v.BuiltAt = cat.BuiltAt
	}

	hero, hasHero := selectHero(events, now, grace)
	for _, ev := range events {
		card := NewCard(ev, now, grace)
		if hasHero && ev.ID == hero.Event.ID {
			v.Hero = &card
			continue
		}
		v.Cards = append(v.Cards, card)
	}
	return v
}

// SortByDate returns ids ordered by their resolved target at now, using the
// same grace window as the cards (calc.DefaultGrace when grace <= 0).
// Events that cannot be resolved, or are not in the catalog, keep their
// relative order after all others.
func SortByDate(cat *catalog.Catalog, ids []string, now time.Time, descending bool, grace time.Duration) []string {
	grace = Options{Grace: grace}.grace()
	type keyed struct {
		id     string
		target time.Time
		ok     bool
	}
	rows := make([]keyed, 0, len(ids))
	for _, id := range ids {
		row := keyed{id: id}
		if ev, found := cat.Get(id); found {
			if occ, err := ev.Target.Occurrence(now, grace); err == nil {
				row.target, row.ok = occ.Target, true
			}
		}
		rows = append(rows, row)
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		case !a.ok:
			return 0
		}
		if descending {
			return b.target.Compare(a.target)
		}
		return a.target.Compare(b.target)
	})

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}
