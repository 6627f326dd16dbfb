package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0 0 * * *", cfg.RefreshCron)
	assert.Equal(t, time.Second, cfg.Tick())
	assert.Equal(t, 24*time.Hour, cfg.Grace())
	assert.Equal(t, []string{"DEFAULT", "JP"}, cfg.DefaultCategories)
	assert.Equal(t, "JP", cfg.Streak.Source)
	require.Len(t, cfg.Holidays, 3)
	assert.Equal(t, 20, cfg.Holidays[1].Limit)
	require.NoError(t, cfg.Validate())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Europe/London
holidays:
  - id: uk
    country: gb
  - id: team
    provider: ICS
    url: https://example.com/team.ics
streak:
  source: none
custom_events:
  - id: bday
    name: Birthday
    rrule: FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=4
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, ProviderCal, cfg.Holidays[0].Provider)
	assert.Equal(t, "GB", cfg.Holidays[0].Country)
	assert.Equal(t, ProviderICS, cfg.Holidays[1].Provider)
	assert.Equal(t, 3, cfg.Streak.MinLength)
	assert.Len(t, cfg.CustomEvents, 1)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	cfg.RefreshCron = "every day"
	cfg.Log.Format = "xml"
	cfg.Holidays = append(cfg.Holidays,
		HolidayConfig{ID: "JP", Provider: ProviderCal, Country: "JP"},
		HolidayConfig{ID: "feed", Provider: ProviderICS},
		HolidayConfig{ID: "x", Provider: "carrier-pigeon", Limit: -1},
	)
	cfg.Streak.Source = "missing"
	cfg.CustomEvents = []CustomEventConfig{{ID: "a", RRule: "FREQ=YEARLY"}, {ID: "a", RRule: "FREQ=YEARLY"}, {Name: "no id"}}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin"}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"timezone", "refresh", "log.format", `duplicate id "JP"`, "needs a url",
		"unknown provider", "limit", "streak.source", `duplicate id "a"`,
		"custom_events[2]", "basic_auth",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "$2a$10$abcdefghijklmnopqrstuv"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.BasicAuth, got.BasicAuth)
	assert.Error(t, Save("", cfg))
}
