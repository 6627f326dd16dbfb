package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Holiday provider names.
const (
	ProviderCal = "cal"
	ProviderICS = "ics"
)

// StreakFromWeekends makes the long-weekend scanner ignore holidays.
const StreakFromWeekends = "none"

// HolidayConfig describes one holiday source shown on the dashboard.
type HolidayConfig struct {
	// ID is the event id prefix and the category, e.g. "JP".
	ID string `yaml:"id" json:"id"`
	// Provider is "cal" (built-in rules) or "ics" (subscription feed).
	Provider string `yaml:"provider" json:"provider"`
	// Country is the ISO code for the "cal" provider; defaults to ID.
	Country string `yaml:"country,omitempty" json:"country,omitempty"`
	// URL is the feed endpoint for the "ics" provider.
	URL   string `yaml:"url,omitempty" json:"url,omitempty"`
	Emoji string `yaml:"emoji,omitempty" json:"emoji,omitempty"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
	// Kinds restricts which holiday kinds are listed (public, bank,
	// observance, other). Empty means public and bank.
	Kinds []string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
	// Limit caps how many holidays this source contributes; 0 is unlimited.
	Limit int `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// CustomEventConfig is a user-defined yearly event.
type CustomEventConfig struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Emoji string `yaml:"emoji,omitempty" json:"emoji,omitempty"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
	// RRule is an RFC 5545 rule, e.g. "FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=4".
	RRule         string `yaml:"rrule" json:"rrule"`
	SpecialEffect bool   `yaml:"special_effect,omitempty" json:"special_effect,omitempty"`
}

// StreakConfig tunes the long-weekend scanner.
type StreakConfig struct {
	// Source is the holiday source id whose holidays count as days off,
	// or "none" for weekends only.
	Source       string `yaml:"source" json:"source"`
	MinLength    int    `yaml:"min_length" json:"min_length"`
	HorizonYears int    `yaml:"horizon_years" json:"horizon_years"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format" json:"format"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
// Password may be a bcrypt hash.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and websocket.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone every countdown is computed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// StateDir holds the preference record.
	StateDir string `yaml:"state_dir" json:"state_dir"`
	// CacheDir holds downloaded ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// PreferencesKey is the storage key of the preference record.
	PreferencesKey string `yaml:"preferences_key" json:"preferences_key"`

	// RefreshCron is the cron schedule for rebuilding the catalog. The
	// default rebuilds at every local midnight.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// TickMillis is the websocket push interval.
	TickMillis int `yaml:"tick_ms" json:"tick_ms"`

	// GraceHours is how long a passed yearly event counts up before it
	// rolls over to next year.
	GraceHours int `yaml:"grace_hours" json:"grace_hours"`

	// DefaultCategories are shown on a fresh install; the rest start hidden.
	DefaultCategories []string `yaml:"default_categories" json:"default_categories"`

	Streak StreakConfig `yaml:"streak" json:"streak"`

	Holidays []HolidayConfig `yaml:"holidays" json:"holidays"`

	CustomEvents []CustomEventConfig `yaml:"custom_events" json:"custom_events"`

	// AnnounceSeconds are the remaining-second marks that raise a signal.
	AnnounceSeconds []int64 `yaml:"announce_seconds" json:"announce_seconds"`

	Log LogConfig `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Asia/Tokyo"
	defaultStateDir    = "/var/lib/countdown"
	defaultCacheDir    = "/var/lib/countdown/ics-cache"
	defaultPrefsKey    = "countdown_settings_v2"
	defaultRefreshCron = "0 0 * * *"
	defaultTickMillis  = 1000
	defaultGraceHours  = 24
)

func defaultHolidays() []HolidayConfig {
	return []HolidayConfig{
		{ID: "JP", Provider: ProviderCal, Emoji: "🇯🇵", Color: "#bc002d"},
		{ID: "US", Provider: ProviderCal, Emoji: "🇺🇸", Color: "#3c3b6e", Limit: 20},
		{ID: "GB", Provider: ProviderCal, Emoji: "🇬🇧", Color: "#012169", Limit: 20},
	}
}

func defaultAnnounce() []int64 {
	return []int64{3600, 1800, 600, 60, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.StateDir == "" {
		c.StateDir = defaultStateDir
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PreferencesKey == "" {
		c.PreferencesKey = defaultPrefsKey
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.TickMillis <= 0 {
		c.TickMillis = defaultTickMillis
	}
	if c.GraceHours <= 0 {
		c.GraceHours = defaultGraceHours
	}
	if c.DefaultCategories == nil {
		c.DefaultCategories = []string{"DEFAULT", "JP"}
	}
	if c.Holidays == nil {
		c.Holidays = defaultHolidays()
	}
	for i := range c.Holidays {
		h := &c.Holidays[i]
		h.ID = strings.TrimSpace(h.ID)
		h.Provider = strings.ToLower(strings.TrimSpace(h.Provider))
		if h.Provider == "" {
			h.Provider = ProviderCal
		}
		if h.Provider == ProviderCal && h.Country == "" {
			h.Country = h.ID
		}
		h.Country = strings.ToUpper(h.Country)
	}
	if c.Streak.Source == "" && len(c.Holidays) > 0 {
		c.Streak.Source = c.Holidays[0].ID
	}
	if c.Streak.MinLength <= 0 {
		c.Streak.MinLength = 3
	}
	if c.Streak.HorizonYears <= 0 {
		c.Streak.HorizonYears = 2
	}
	if c.CustomEvents == nil {
		c.CustomEvents = []CustomEventConfig{}
	}
	if c.AnnounceSeconds == nil {
		c.AnnounceSeconds = defaultAnnounce()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Tick returns the websocket push interval.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

// Grace returns the count-up window for yearly events.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GraceHours) * time.Hour
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate reports every invalid setting at once. Call after Normalize.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want console or json", c.Log.Format))
	}

	seen := make(map[string]bool, len(c.Holidays))
	for i, h := range c.Holidays {
		switch {
		case h.ID == "":
			errs = append(errs, fmt.Errorf("holidays[%d]: id is empty", i))
		case seen[h.ID]:
			errs = append(errs, fmt.Errorf("holidays[%d]: duplicate id %q", i, h.ID))
		}
		seen[h.ID] = true

		switch h.Provider {
		case ProviderCal:
			if h.Country == "" {
				errs = append(errs, fmt.Errorf("holidays[%d]: country is empty", i))
			}
		case ProviderICS:
			if h.URL == "" {
				errs = append(errs, fmt.Errorf("holidays[%d]: ics provider needs a url", i))
			}
		default:
			errs = append(errs, fmt.Errorf("holidays[%d]: unknown provider %q", i, h.Provider))
		}
		if h.Limit < 0 {
			errs = append(errs, fmt.Errorf("holidays[%d]: limit must not be negative", i))
		}
	}
	if c.Streak.Source != StreakFromWeekends && !seen[c.Streak.Source] {
		errs = append(errs, fmt.Errorf("streak.source %q: no such holiday source", c.Streak.Source))
	}

	customIDs := make(map[string]bool, len(c.CustomEvents))
	for i, ce := range c.CustomEvents {
		if ce.ID == "" || ce.RRule == "" {
			errs = append(errs, fmt.Errorf("custom_events[%d]: id and rrule are required", i))
			continue
		}
		if customIDs[ce.ID] {
			errs = append(errs, fmt.Errorf("custom_events[%d]: duplicate id %q", i, ce.ID))
		}
		customIDs[ce.ID] = true
	}

	if c.BasicAuth != nil && (c.BasicAuth.Username == "") != (c.BasicAuth.Password == "") {
		errs = append(errs, errors.New("basic_auth: username and password must both be set"))
	}

	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is read and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".countdown-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
