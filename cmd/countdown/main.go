package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"countdown/internal/catalog"
	"countdown/internal/config"
	"countdown/internal/dashboard"
	"countdown/internal/effect"
	"countdown/internal/holiday"
	"countdown/internal/ics"
	appLog "countdown/internal/log"
	"countdown/internal/model"
	"countdown/internal/prefs"
	"countdown/internal/web"
	"countdown/internal/workday"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	logLevel   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.Log.Level = flags.logLevel
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Configure(conf.Log.Level, conf.Log.Format)
	defer appLog.Sync()

	appLog.Info("countdown starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"tick_ms", conf.TickMillis,
		"holiday_sources", len(conf.Holidays),
		"custom_events", len(conf.CustomEvents),
		"streak_source", conf.Streak.Source,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags.once); err != nil {
		appLog.Error("countdown failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("countdown exiting")
}

func run(ctx context.Context, conf *config.Config, once bool) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}
	clock := func() time.Time { return time.Now().In(loc) }

	assembler, err := buildAssembler(conf, loc)
	if err != nil {
		return err
	}

	manager := prefs.NewManager(
		prefs.NewFileStore(conf.StateDir),
		conf.PreferencesKey,
		prefs.Policy{ShownByDefault: categories(conf.DefaultCategories)},
	)
	svc := dashboard.NewService(assembler, manager,
		dashboard.WithClock(clock),
		dashboard.WithOptions(dashboard.Options{Grace: conf.Grace()}),
		dashboard.WithTracker(effect.NewTracker(conf.AnnounceSeconds...)),
	)

	if err := svc.Refresh(ctx); err != nil {
		return err
	}

	if once {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(svc.Current())
	}

	// The catalog is rebuilt on the calendar schedule, never per tick.
	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		if err := svc.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", conf.RefreshCron, err)
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	return web.NewServer(conf, svc).Run(ctx)
}

// buildAssembler wires holiday providers, the streak scanner and the event
// definitions from conf.
func buildAssembler(conf *config.Config, loc *time.Location) (*catalog.Assembler, error) {
	fetcher := ics.NewFetcher(conf.CacheDir, &http.Client{Timeout: 30 * time.Second})

	a := &catalog.Assembler{}
	var streakLookup *holiday.Lookup

	for _, hc := range conf.Holidays {
		var p holiday.Provider
		switch hc.Provider {
		case config.ProviderCal:
			cp, err := holiday.NewCalProvider(hc.Country, loc)
			if err != nil {
				return nil, fmt.Errorf("holiday source %s: %w", hc.ID, err)
			}
			p = cp
		case config.ProviderICS:
			p = holiday.NewICSProvider(fetcher, ics.Source{ID: hc.ID, URL: hc.URL}, loc)
		default:
			return nil, fmt.Errorf("holiday source %s: unknown provider %q", hc.ID, hc.Provider)
		}

		a.Sources = append(a.Sources, catalog.SourceBinding{
			Source: holiday.Source{
				ID:       hc.ID,
				Category: model.Category(hc.ID),
				Emoji:    hc.Emoji,
				Color:    hc.Color,
				Kinds:    hc.Kinds,
				Limit:    hc.Limit,
			},
			Provider: p,
		})

		if hc.ID == conf.Streak.Source {
			streakLookup = holiday.NewLookup(p, hc.Kinds)
		}
	}

	scanner := workday.Scanner{
		MinLength:    conf.Streak.MinLength,
		HorizonYears: conf.Streak.HorizonYears,
	}
	if streakLookup != nil {
		scanner.Lookup = streakLookup
		a.Lookups = []*holiday.Lookup{streakLookup}
	}

	a.Builtins = catalog.Builtins(scanner)

	specs := make([]catalog.CustomSpec, 0, len(conf.CustomEvents))
	for _, ce := range conf.CustomEvents {
		specs = append(specs, catalog.CustomSpec{
			ID:            ce.ID,
			Name:          ce.Name,
			Emoji:         ce.Emoji,
			Color:         ce.Color,
			RRule:         ce.RRule,
			SpecialEffect: ce.SpecialEffect,
		})
	}
	a.Custom = catalog.CustomEvents(specs)

	return a, nil
}

func categories(in []string) []model.Category {
	out := make([]model.Category, 0, len(in))
	for _, c := range in {
		out = append(out, model.Category(c))
	}
	return out
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/countdown/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Build the catalog, print the current dashboard as JSON and exit")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level (overrides config if set)")

	flag.Parse()

	return cfg
}
