package holiday

import (
	"context"
	"fmt"
	"time"

	appLog "countdown/internal/log"
	"countdown/internal/model"
)

// staleAfter is how long a holiday stays listed after its day starts.
const staleAfter = 24 * time.Hour

// Source describes how one provider's holidays appear on the dashboard.
type Source struct {
	// ID names the source in logs and is the default id prefix.
	ID string
	// Prefix is prepended to every event id; defaults to ID.
	Prefix   string
	Category model.Category
	Emoji    string
	Color    string
	// Kinds is the allow-list of record kinds; empty means DefaultKinds.
	Kinds []string
	// Limit caps the number of emitted events; 0 is unlimited.
	Limit int
}

// Build fetches this year's and next year's holidays from p and turns the
// ones still relevant at now into events, in date order.
//
// Records of kinds outside the allow-list are dropped, as are records more
// than a day in the past. Names are deduplicated with the first (earliest)
// occurrence winning, so each named holiday appears once.
//
// A failing provider is logged and contributes no events.
func Build(ctx context.Context, src Source, p Provider, now time.Time) (events []model.Event) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("holiday provider panicked", fmt.Errorf("%v", r), "source", src.ID)
			events = nil
		}
	}()

	if p == nil {
		appLog.Error("holiday provider missing", nil, "source", src.ID)
		return nil
	}

	prefix := src.Prefix
	if prefix == "" {
		prefix = src.ID
	}
	allowed := allowSet(src.Kinds)
	cutoff := now.Add(-staleAfter)
	loc := now.Location()

	seenName := make(map[string]bool)
	seenID := make(map[string]bool)

	year := now.Year()
	for _, y := range []int{year, year + 1} {
		records, err := p.Holidays(ctx, y)
		if err != nil {
			appLog.Error("holiday fetch failed", err, "source", src.ID, "year", y)
			return nil
		}

		for _, r := range records {
			if !allowed[r.Kind] || r.Name == "" || r.Date.IsZero() {
				continue
			}
			yy, mm, dd := r.Date.Date()
			day := time.Date(yy, mm, dd, 0, 0, 0, 0, loc)
			if day.Before(cutoff) {
				continue
			}
			if seenName[r.Name] {
				continue
			}
			seenName[r.Name] = true

			key := r.Rule
			if key == "" {
				key = r.Name
			}
			id := prefix + "-" + key
			if seenID[id] {
				continue
			}
			seenID[id] = true

			events = append(events, model.Event{
				ID:       id,
				Name:     r.Name,
				Emoji:    src.Emoji,
				Color:    src.Color,
				Category: src.Category,
				Target:   model.OnDate(day),
			})
			if src.Limit > 0 && len(events) >= src.Limit {
				appLog.Debug("holiday build limited", "source", src.ID, "limit", src.Limit)
				return events
			}
		}
	}

	appLog.Debug("holiday build completed", "source", src.ID, "events", len(events))
	return events
}
