package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/calc"
)

func TestTarget_FixedResolve(t *testing.T) {
	target := FixedTarget(func(year int, loc *time.Location) time.Time {
		return time.Date(year, time.October, 31, 0, 0, 0, 0, loc)
	})
	assert.Equal(t, TargetFixed, target.Kind())

	now := time.Date(2025, time.November, 5, 12, 0, 0, 0, time.UTC)
	got, err := target.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC), got)
}

func TestTarget_DynamicOccurrence(t *testing.T) {
	target := DynamicTarget(func(now time.Time) (time.Time, bool) {
		return calc.NextWeekend(now), true
	})
	assert.Equal(t, TargetDynamic, target.Kind())

	now := time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC)
	occ, err := target.Occurrence(now, calc.DefaultGrace)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC), occ.Target)
	assert.Equal(t, time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC), occ.Start)
	assert.False(t, occ.CountUp)
}

func TestTarget_Unresolvable(t *testing.T) {
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]Target{
		"zero value": {},
		"no occurrence": DynamicTarget(func(time.Time) (time.Time, bool) {
			return time.Time{}, false
		}),
		"zero date": FixedTarget(func(int, *time.Location) time.Time {
			return time.Time{}
		}),
		"panics": DynamicTarget(func(time.Time) (time.Time, bool) {
			panic("provider exploded")
		}),
		"nil fixed": FixedTarget(nil),
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := target.Resolve(now)
			assert.True(t, errors.Is(err, ErrUnresolvable), "got %v", err)
		})
	}
}

func TestOnDate(t *testing.T) {
	day := time.Date(2026, time.May, 5, 0, 0, 0, 0, time.UTC)
	target := OnDate(day)

	occ, err := target.Occurrence(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), calc.DefaultGrace)
	require.NoError(t, err)
	assert.Equal(t, day, occ.Target)
	assert.Equal(t, day.AddDate(-1, 0, 0), occ.Start)
}
