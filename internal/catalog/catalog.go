// Package catalog assembles the full list of countable events: curated
// built-ins, user-defined recurring events and per-country holidays.
package catalog

import (
	"context"
	"time"

	"countdown/internal/holiday"
	appLog "countdown/internal/log"
	"countdown/internal/model"
)

// Entry is the part of an event that preference reconciliation needs.
type Entry struct {
	ID       string
	Category model.Category
}

// Catalog is an immutable, ordered set of events with unique ids.
type Catalog struct {
	events  []model.Event
	byID    map[string]int
	BuiltAt time.Time
}

// New builds a catalog from events, dropping later duplicates of an id.
func New(events []model.Event, builtAt time.Time) *Catalog {
	c := &Catalog{
		events:  make([]model.Event, 0, len(events)),
		byID:    make(map[string]int, len(events)),
		BuiltAt: builtAt,
	}
	for _, ev := range events {
		if ev.ID == "" {
			continue
		}
		if _, dup := c.byID[ev.ID]; dup {
			appLog.Warn("catalog: duplicate event id dropped", "id", ev.ID, "name", ev.Name)
			continue
		}
		c.byID[ev.ID] = len(c.events)
		c.events = append(c.events, ev)
	}
	return c
}

// Events returns the events in catalog order. The slice must not be modified.
func (c *Catalog) Events() []model.Event {
	if c == nil {
		return nil
	}
	return c.events
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.events)
}

func (c *Catalog) Get(id string) (model.Event, bool) {
	if c == nil {
		return model.Event{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return model.Event{}, false
	}
	return c.events[i], true
}

func (c *Catalog) IDs() []string {
	out := make([]string, 0, c.Len())
	for _, ev := range c.Events() {
		out = append(out, ev.ID)
	}
	return out
}

func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, c.Len())
	for _, ev := range c.Events() {
		out = append(out, Entry{ID: ev.ID, Category: ev.Category})
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []model.Category {
	seen := make(map[model.Category]bool)
	var out []model.Category
	for _, ev := range c.Events() {
		if !seen[ev.Category] {
			seen[ev.Category] = true
			out = append(out, ev.Category)
		}
	}
	return out
}

// SourceBinding pairs a holiday source's presentation with its provider.
type SourceBinding struct {
	Source   holiday.Source
	Provider holiday.Provider
}

// Assembler produces a fresh Catalog. Building is the expensive step
// (holiday providers may hit the network) and is meant to run once per
// process start or calendar day, not per tick.
type Assembler struct {
	Builtins []model.Event
	Custom   []model.Event
	Sources  []SourceBinding
	// Lookups are warmed for the current and following two years so the
	// streak resolver does no I/O while ticking.
	Lookups []*holiday.Lookup
}

func (a *Assembler) Build(ctx context.Context, now time.Time) *Catalog {
	events := make([]model.Event, 0, len(a.Builtins)+len(a.Custom))

	for _, ev := range a.Builtins {
		if ev.Category == "" {
			ev.Category = model.CategoryDefault
		}
		events = append(events, ev)
	}
	events = append(events, a.Custom...)

	for _, sb := range a.Sources {
		hs := holiday.Build(ctx, sb.Source, sb.Provider, now)
		appLog.Info("holiday source loaded", "source", sb.Source.ID, "events", len(hs))
		events = append(events, hs...)
	}

	year := now.Year()
	for _, l := range a.Lookups {
		l.Warm(ctx, year, year+1, year+2)
	}

	cat := New(events, now)
	appLog.Info("catalog assembled", "events", cat.Len(), "sources", len(a.Sources))
	return cat
}
