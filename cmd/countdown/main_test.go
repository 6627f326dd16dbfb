package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/catalog"
	"countdown/internal/config"
	"countdown/internal/holiday"
	"countdown/internal/model"
)

func TestBuildAssembler_Defaults(t *testing.T) {
	conf := config.DefaultConfig()
	conf.CacheDir = t.TempDir()
	conf.CustomEvents = []config.CustomEventConfig{
		{ID: "bday", Name: "Birthday", RRule: "FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=4"},
	}

	a, err := buildAssembler(conf, time.UTC)
	require.NoError(t, err)
	require.Len(t, a.Sources, 3)
	assert.Len(t, a.Lookups, 1)
	assert.Len(t, a.Custom, 1)
	assert.Equal(t, 20, a.Sources[1].Source.Limit)

	now := time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC)
	cat := a.Build(context.Background(), now)
	assert.Equal(t, []model.Category{model.CategoryDefault, "JP", "US", "GB"}, cat.Categories())

	_, ok := cat.Get(catalog.IDNewYear)
	assert.True(t, ok)
	_, ok = cat.Get("custom-bday")
	assert.True(t, ok)
}

func TestBuildAssembler_WeekendOnlyStreak(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Holidays = []config.HolidayConfig{{ID: "feed", Provider: config.ProviderICS, URL: "http://127.0.0.1:1/none.ics"}}
	conf.Streak.Source = config.StreakFromWeekends

	a, err := buildAssembler(conf, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, a.Lookups)
	require.Len(t, a.Sources, 1)

	conf.Holidays = []config.HolidayConfig{{ID: "XX", Provider: config.ProviderCal, Country: "XX"}}
	_, err = buildAssembler(conf, time.UTC)
	assert.Error(t, err)
}

func TestBuildAssembler_StreakHonorsKinds(t *testing.T) {
	thanksgiving := time.Date(2026, time.November, 26, 0, 0, 0, 0, time.UTC)

	conf := config.DefaultConfig()
	conf.Holidays = []config.HolidayConfig{{ID: "US", Provider: config.ProviderCal, Country: "US"}}
	conf.Streak.Source = "US"

	a, err := buildAssembler(conf, time.UTC)
	require.NoError(t, err)
	require.Len(t, a.Lookups, 1)
	assert.True(t, a.Lookups[0].IsHoliday(thanksgiving))

	conf.Holidays[0].Kinds = []string{holiday.KindOther}
	a, err = buildAssembler(conf, time.UTC)
	require.NoError(t, err)
	require.Len(t, a.Lookups, 1)
	assert.False(t, a.Lookups[0].IsHoliday(thanksgiving), "public holidays filtered out like the card list")
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []model.Category{"DEFAULT", "JP"}, categories([]string{"DEFAULT", "JP"}))
	assert.Empty(t, categories(nil))
}
