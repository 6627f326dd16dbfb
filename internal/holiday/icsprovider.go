package holiday

import (
	"context"
	"sync"
	"time"

	"countdown/internal/ics"
)

// DefaultFeedTTL is how long a parsed feed is reused before refetching.
const DefaultFeedTTL = time.Hour

// ICSProvider reads holidays from an iCalendar feed. Entries without a
// CATEGORIES value are reported as public holidays.
type ICSProvider struct {
	fetcher *ics.Fetcher
	source  ics.Source
	loc     *time.Location
	ttl     time.Duration

	mu        sync.Mutex
	entries   []ics.Entry
	fetchedAt time.Time
}

func NewICSProvider(fetcher *ics.Fetcher, source ics.Source, loc *time.Location) *ICSProvider {
	if loc == nil {
		loc = time.Local
	}
	return &ICSProvider{fetcher: fetcher, source: source, loc: loc, ttl: DefaultFeedTTL}
}

func (p *ICSProvider) Holidays(ctx context.Context, year int) ([]Record, error) {
	entries, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	occs := ics.OccurrencesInYear(entries, year, p.loc)
	out := make([]Record, 0, len(occs))
	for _, o := range occs {
		kind := o.Category
		if kind == "" {
			kind = KindPublic
		}
		out = append(out, Record{
			Name: o.Summary,
			Date: o.Date,
			Kind: kind,
			Rule: o.UID,
		})
	}
	return out, nil
}

func (p *ICSProvider) load(ctx context.Context) ([]ics.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entries != nil && time.Since(p.fetchedAt) < p.ttl {
		return p.entries, nil
	}

	res, err := p.fetcher.Fetch(ctx, p.source)
	if err != nil {
		return nil, err
	}
	entries, err := ics.ParseFeed(p.source, res.Body, p.loc)
	if err != nil {
		return nil, err
	}
	p.entries = entries
	p.fetchedAt = time.Now()
	return entries, nil
}
