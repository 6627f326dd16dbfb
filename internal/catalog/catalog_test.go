package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/holiday"
	"countdown/internal/model"
	"countdown/internal/workday"
)

func TestBuiltins(t *testing.T) {
	events := Builtins(workday.Scanner{})
	require.Len(t, events, 8)

	now := time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC)
	want := map[string]time.Time{
		IDNewYear:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IDYearRemaining: time.Date(2025, 12, 31, 23, 59, 59, 999_000_000, time.UTC),
		IDWeekend:       time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC),
		IDValentine:     time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		IDGoldenWeek:    time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		IDHalloween:     time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC),
		IDChristmas:     time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	for _, ev := range events {
		exp, ok := want[ev.ID]
		if !ok {
			continue
		}
		got, err := ev.Target.Resolve(now)
		require.NoError(t, err, ev.ID)
		assert.Equal(t, exp, got, ev.ID)
	}

	// With no holidays a plain weekend never reaches three days.
	_, err := events[3].Target.Resolve(now)
	assert.True(t, errors.Is(err, model.ErrUnresolvable))
	assert.True(t, events[0].SpecialEffect)
}

func TestCustomEvent(t *testing.T) {
	ev, err := CustomEvent(CustomSpec{ID: "bday", Name: "Birthday", RRule: "FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=4;BYHOUR=9"})
	require.NoError(t, err)
	assert.Equal(t, "custom-bday", ev.ID)
	assert.Equal(t, model.CategoryDefault, ev.Category)

	got, err := ev.Target.Resolve(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 4, 9, 0, 0, 0, time.UTC), got)

	got, err = ev.Target.Resolve(time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC), got, "inside grace window")

	_, err = CustomEvent(CustomSpec{ID: "bad", RRule: "FREQ=SOMETIMES"})
	assert.Error(t, err)
	_, err = CustomEvent(CustomSpec{RRule: "FREQ=YEARLY"})
	assert.Error(t, err)

	assert.Len(t, CustomEvents([]CustomSpec{
		{ID: "ok", RRule: "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=1"},
		{ID: "bad", RRule: "nope"},
	}), 1)
}

func TestAssembler_Build(t *testing.T) {
	now := time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC)

	jp := holiday.ProviderFunc(func(_ context.Context, year int) ([]holiday.Record, error) {
		return []holiday.Record{
			{Name: "Labor Thanksgiving Day", Date: time.Date(year, 11, 24, 0, 0, 0, 0, time.UTC), Kind: holiday.KindPublic},
		}, nil
	})
	broken := holiday.ProviderFunc(func(context.Context, int) ([]holiday.Record, error) {
		return nil, errors.New("unreachable")
	})
	lookup := holiday.NewLookup(jp, nil)

	a := &Assembler{
		Builtins: Builtins(workday.Scanner{Lookup: lookup}),
		Custom:   CustomEvents([]CustomSpec{{ID: "x", RRule: "FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=2"}}),
		Sources: []SourceBinding{
			{Source: holiday.Source{ID: "JP", Category: "JP"}, Provider: jp},
			{Source: holiday.Source{ID: "GB", Category: "GB"}, Provider: broken},
		},
		Lookups: []*holiday.Lookup{lookup},
	}

	cat := a.Build(context.Background(), now)
	assert.Equal(t, 10, cat.Len())
	assert.Equal(t, []model.Category{model.CategoryDefault, "JP"}, cat.Categories())

	ev, ok := cat.Get("JP-Labor Thanksgiving Day")
	require.True(t, ok)
	assert.Equal(t, model.Category("JP"), ev.Category)

	// Sat 22, Sun 23, Mon 24 make a three-day weekend.
	lw, ok := cat.Get(IDLongWeekend)
	require.True(t, ok)
	got, err := lw.Target.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC), got)

	entries := cat.Entries()
	assert.Equal(t, IDNewYear, entries[0].ID)
	assert.Equal(t, model.CategoryDefault, entries[0].Category)
}

func TestNew_DropsDuplicates(t *testing.T) {
	cat := New([]model.Event{
		{ID: "a", Name: "first"},
		{ID: "b"},
		{ID: "a", Name: "second"},
		{ID: ""},
	}, time.Now())
	assert.Equal(t, []string{"a", "b"}, cat.IDs())
	ev, _ := cat.Get("a")
	assert.Equal(t, "first", ev.Name)

	var nilCat *Catalog
	assert.Equal(t, 0, nilCat.Len())
	_, ok := nilCat.Get("a")
	assert.False(t, ok)
}
