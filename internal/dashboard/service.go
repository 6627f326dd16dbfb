package dashboard

import (
	"context"
	"sync"
	"time"

	"countdown/internal/catalog"
	"countdown/internal/effect"
	appLog "countdown/internal/log"
	"countdown/internal/model"
	"countdown/internal/prefs"
)

// CatalogBuilder produces a fresh catalog; *catalog.Assembler implements it.
type CatalogBuilder interface {
	Build(ctx context.Context, now time.Time) *catalog.Catalog
}

// EventInfo is the settings-screen view of one catalog event.
type EventInfo struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Emoji    string         `json:"emoji,omitempty"`
	Category model.Category `json:"category"`
	Visible  bool           `json:"visible"`
}

// Service owns the current catalog and forwards user intents to the
// preference manager. Readers may call View concurrently with a Refresh.
type Service struct {
	builder CatalogBuilder
	prefs   *prefs.Manager
	tracker *effect.Tracker
	opts    Options
	now     func() time.Time

	refreshMu sync.Mutex

	mu  sync.RWMutex
	cat *catalog.Catalog
}

type ServiceOption func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithTracker attaches an effect tracker fed by Tick.
func WithTracker(t *effect.Tracker) ServiceOption {
	return func(s *Service) { s.tracker = t }
}

func WithOptions(o Options) ServiceOption {
	return func(s *Service) { s.opts = o }
}

func NewService(builder CatalogBuilder, manager *prefs.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		builder: builder,
		prefs:   manager,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Refresh rebuilds the catalog and reconciles preferences against it.
// Concurrent calls are serialized; readers keep the previous catalog
// until the new one is attached.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	started := time.Now()
	cat := s.builder.Build(ctx, s.now())
	snap := s.prefs.Attach(cat.Entries())

	s.mu.Lock()
	s.cat = cat
	s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.Retain(cat.IDs())
	}

	appLog.Info("dashboard refreshed",
		"events", cat.Len(),
		"visible", len(snap.VisibleIDs()),
		"elapsed", time.Since(started).String(),
	)
	return nil
}

// Catalog returns the current catalog, nil before the first Refresh.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat
}

// View computes the dashboard at now.
func (s *Service) View(now time.Time) View {
	return Compute(now, s.Catalog(), s.prefs.Snapshot(), s.opts)
}

// Current computes the dashboard at the service clock.
func (s *Service) Current() View {
	return s.View(s.now())
}

// Tick computes the view at the service clock and the effect signals that
// became due since the previous tick.
func (s *Service) Tick() (View, []effect.Signal) {
	v := s.View(s.now())
	if s.tracker == nil {
		return v, nil
	}

	var signals []effect.Signal
	observe := func(c Card) {
		if !c.Resolvable {
			return
		}
		signals = append(signals, s.tracker.Observe(c.ID, c.Name, c.SpecialEffect, c.Target, v.Now)...)
	}
	if v.Hero != nil {
		observe(*v.Hero)
	}
	for _, c := range v.Cards {
		observe(c)
	}
	return v, signals
}

// Events lists the whole catalog in user order with visibility flags.
func (s *Service) Events() []EventInfo {
	cat := s.Catalog()
	snap := s.prefs.Snapshot()

	order := snap.Order()
	out := make([]EventInfo, 0, len(order))
	for _, id := range order {
		ev, ok := cat.Get(id)
		if !ok {
			continue
		}
		out = append(out, EventInfo{
			ID:       ev.ID,
			Name:     ev.Name,
			Emoji:    ev.Emoji,
			Category: ev.Category,
			Visible:  snap.Visible(id),
		})
	}
	return out
}

func (s *Service) Reorder(oldIndex, newIndex int) (prefs.Snapshot, error) {
	return s.prefs.Reorder(oldIndex, newIndex)
}

func (s *Service) Move(activeID, overID string) (prefs.Snapshot, error) {
	return s.prefs.Move(activeID, overID)
}

func (s *Service) ToggleVisibility(id string) (prefs.Snapshot, error) {
	return s.prefs.ToggleVisibility(id)
}

func (s *Service) ToggleCategory(category model.Category, show bool) (prefs.Snapshot, error) {
	return s.prefs.ToggleCategory(category, show)
}

func (s *Service) Reset() (prefs.Snapshot, error) {
	return s.prefs.Reset()
}

// SortByDate reorders every event by its resolved date at the service clock.
func (s *Service) SortByDate(descending bool) (prefs.Snapshot, error) {
	ids := SortByDate(s.Catalog(), s.prefs.Snapshot().Order(), s.now(), descending, s.opts.Grace)
	return s.prefs.SetOrder(ids)
}
