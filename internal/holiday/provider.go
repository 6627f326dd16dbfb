// Package holiday turns third-party holiday data into dashboard events and
// answers "is this day a holiday" for the streak scanner.
package holiday

import (
	"context"
	"time"
)

// Kinds a provider may report. Providers are free to use others; the
// builder filters with an allow-list.
const (
	KindPublic     = "public"
	KindBank       = "bank"
	KindObservance = "observance"
	KindOther      = "other"
)

// DefaultKinds are the kinds treated as a full day off.
var DefaultKinds = []string{KindPublic, KindBank}

// Record is one holiday as reported by a provider for a given year.
type Record struct {
	Name string
	// Date is the holiday's calendar day.
	Date time.Time
	// Observed is the substitute day off when it differs from Date.
	Observed time.Time
	Kind     string
	// Rule is the provider's stable identifier for the holiday, if any.
	Rule string
}

// Provider returns the holidays of one country or feed for a year.
type Provider interface {
	Holidays(ctx context.Context, year int) ([]Record, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, year int) ([]Record, error)

func (f ProviderFunc) Holidays(ctx context.Context, year int) ([]Record, error) {
	return f(ctx, year)
}

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func allowSet(kinds []string) map[string]bool {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}
