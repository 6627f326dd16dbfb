package catalog

import (
	"time"

	"countdown/internal/calc"
	"countdown/internal/model"
	"countdown/internal/workday"
)

// Stable ids of the built-in events.
const (
	IDNewYear       = "new-year"
	IDYearRemaining = "year-remaining"
	IDWeekend       = "weekend"
	IDLongWeekend   = "3-day-weekend"
	IDValentine     = "valentine"
	IDGoldenWeek    = "golden-week"
	IDHalloween     = "halloween"
	IDChristmas     = "christmas"
)

func onDay(month time.Month, day int) calc.YearFunc {
	return func(year int, loc *time.Location) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
}

// Builtins returns the curated default events. The long-weekend event
// scans for streaks of days off using the given scanner.
func Builtins(streak workday.Scanner) []model.Event {
	return []model.Event{
		{
			ID:            IDNewYear,
			Name:          "New Year",
			Emoji:         "🎍",
			Color:         "#ff6b6b",
			SpecialEffect: true,
			Target:        model.FixedTarget(onDay(time.January, 1)),
		},
		{
			ID:    IDYearRemaining,
			Name:  "Rest of the year",
			Emoji: "📊",
			Color: "#54a0ff",
			Target: model.FixedTarget(func(year int, loc *time.Location) time.Time {
				return time.Date(year, time.December, 31, 23, 59, 59, 999_000_000, loc)
			}),
		},
		{
			ID:    IDWeekend,
			Name:  "Weekend",
			Emoji: "📅",
			Color: "#4b7bec",
			Target: model.DynamicTarget(func(now time.Time) (time.Time, bool) {
				return calc.NextWeekend(now), true
			}),
		},
		{
			ID:     IDLongWeekend,
			Name:   "Next 3-day weekend",
			Emoji:  "🎌",
			Color:  "#a55eea",
			Target: model.DynamicTarget(streak.Next),
		},
		{
			ID:     IDValentine,
			Name:   "Valentine's Day",
			Emoji:  "💝",
			Color:  "#fa8231",
			Target: model.FixedTarget(onDay(time.February, 14)),
		},
		{
			ID:     IDGoldenWeek,
			Name:   "Golden Week",
			Emoji:  "🌸",
			Color:  "#2bcbba",
			Target: model.FixedTarget(onDay(time.May, 3)),
		},
		{
			ID:     IDHalloween,
			Name:   "Halloween",
			Emoji:  "🎃",
			Color:  "#fd9644",
			Target: model.FixedTarget(onDay(time.October, 31)),
		},
		{
			ID:     IDChristmas,
			Name:   "Christmas",
			Emoji:  "🎄",
			Color:  "#20bf6b",
			Target: model.FixedTarget(onDay(time.December, 25)),
		},
	}
}
