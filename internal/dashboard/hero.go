// Package dashboard turns a catalog and the user's preferences into what a
// renderer shows at a given instant.
package dashboard

import (
	"slices"
	"time"

	"countdown/internal/calc"
	"countdown/internal/model"
)

// Hero is the nearest strictly-future event.
type Hero struct {
	Event  model.Event
	Target time.Time
}

type resolved struct {
	ev     model.Event
	target time.Time
}

// SelectHero picks the earliest event whose target lies strictly after
// now. Unresolvable events are skipped. Equal targets keep the input
// order. ok is false when nothing qualifies.
func SelectHero(events []model.Event, now time.Time) (Hero, bool) {
	return selectHero(events, now, calc.DefaultGrace)
}

func selectHero(events []model.Event, now time.Time, grace time.Duration) (Hero, bool) {
	candidates := make([]resolved, 0, len(events))
	for _, ev := range events {
		occ, err := ev.Target.Occurrence(now, grace)
		if err != nil || !occ.Target.After(now) {
			continue
		}
		candidates = append(candidates, resolved{ev: ev, target: occ.Target})
	}
	if len(candidates) == 0 {
		return Hero{}, false
	}
	slices.SortStableFunc(candidates, func(a, b resolved) int {
		return a.target.Compare(b.target)
	})
	return Hero{Event: candidates[0].ev, Target: candidates[0].target}, true
}
