package holiday

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/us"
)

var countryRules = map[string][]*cal.Holiday{
	"US": us.Holidays,
	"GB": gb.Holidays,
	"JP": jp.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
}

// Countries lists the country codes CalProvider knows, sorted.
func Countries() []string {
	out := make([]string, 0, len(countryRules))
	for c := range countryRules {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CalProvider computes national holidays from rule tables, with no I/O.
type CalProvider struct {
	country  string
	holidays []*cal.Holiday
	loc      *time.Location
}

// NewCalProvider returns the rule-based provider for an ISO country code.
// Dates are reported at local midnight in loc (time.Local when nil).
func NewCalProvider(country string, loc *time.Location) (*CalProvider, error) {
	code := strings.ToUpper(strings.TrimSpace(country))
	rules, ok := countryRules[code]
	if !ok {
		return nil, fmt.Errorf("holiday: no rules for country %q", country)
	}
	if loc == nil {
		loc = time.Local
	}
	return &CalProvider{country: code, holidays: rules, loc: loc}, nil
}

func (p *CalProvider) Country() string { return p.country }

func (p *CalProvider) Holidays(_ context.Context, year int) ([]Record, error) {
	out := make([]Record, 0, len(p.holidays))
	for _, h := range p.holidays {
		actual, observed := h.Calc(year)
		if actual.IsZero() {
			continue
		}
		rec := Record{
			Name: h.Name,
			Date: p.localDay(actual),
			Kind: observanceKind(h.Type),
			Rule: h.Name,
		}
		if !observed.IsZero() && dayKey(observed) != dayKey(actual) {
			rec.Observed = p.localDay(observed)
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (p *CalProvider) localDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
}

func observanceKind(t cal.ObservanceType) string {
	switch t {
	case cal.ObservancePublic:
		return KindPublic
	case cal.ObservanceBank:
		return KindBank
	default:
		return KindOther
	}
}
