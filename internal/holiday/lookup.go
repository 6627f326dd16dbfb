package holiday

import (
	"context"
	"sync"
	"time"

	appLog "countdown/internal/log"
)

// Lookup answers IsHoliday from a provider, loading each year once. Both
// the holiday day and its observed substitute count as days off.
type Lookup struct {
	provider Provider
	allowed  map[string]bool

	mu    sync.Mutex
	years map[int]map[int]struct{}
	// failed years are served empty until the next Warm retries them.
	failed map[int]bool
}

func NewLookup(p Provider, kinds []string) *Lookup {
	return &Lookup{
		provider: p,
		allowed:  allowSet(kinds),
		years:    make(map[int]map[int]struct{}),
		failed:   make(map[int]bool),
	}
}

// Warm loads the given years so later IsHoliday calls do no I/O. Years
// whose earlier load failed are fetched again.
func (l *Lookup) Warm(ctx context.Context, years ...int) {
	for _, y := range years {
		l.mu.Lock()
		if l.failed[y] {
			delete(l.years, y)
			delete(l.failed, y)
		}
		l.mu.Unlock()
		l.year(ctx, y)
	}
}

func (l *Lookup) IsHoliday(date time.Time) bool {
	days := l.year(context.Background(), date.Year())
	_, ok := days[dayKey(date)]
	return ok
}

func (l *Lookup) year(ctx context.Context, y int) map[int]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if days, ok := l.years[y]; ok {
		return days
	}

	days := make(map[int]struct{})
	if l.provider != nil {
		records, err := l.provider.Holidays(ctx, y)
		if err != nil {
			// A broken source means weekends only until the next Warm.
			appLog.Error("holiday lookup load failed", err, "year", y)
			l.failed[y] = true
		}
		for _, r := range records {
			if !l.allowed[r.Kind] {
				continue
			}
			days[dayKey(r.Date)] = struct{}{}
			if !r.Observed.IsZero() {
				days[dayKey(r.Observed)] = struct{}{}
			}
		}
	}
	l.years[y] = days
	return days
}
