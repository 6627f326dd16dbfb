package prefs

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"countdown/internal/catalog"
	appLog "countdown/internal/log"
	"countdown/internal/model"
)

var (
	ErrIndexOutOfRange = errors.New("prefs: index out of range")
	ErrUnknownID       = errors.New("prefs: unknown event id")
	ErrNotAttached     = errors.New("prefs: no catalog attached")

	errMalformed = errors.New("prefs: malformed record")
)

// Snapshot is an immutable view of the reconciled preferences.
type Snapshot struct {
	record     Record
	visibleIDs []string
}

func newSnapshot(r Record) Snapshot {
	r = r.Clone()
	vis := make([]string, 0, len(r.Order))
	for _, id := range r.Order {
		if r.Visible(id) {
			vis = append(vis, id)
		}
	}
	return Snapshot{record: r, visibleIDs: vis}
}

// Order returns a copy of the full ordering, hidden ids included.
func (s Snapshot) Order() []string { return slices.Clone(s.record.Order) }

// VisibleIDs returns a copy of the ordered visible ids.
func (s Snapshot) VisibleIDs() []string { return slices.Clone(s.visibleIDs) }

func (s Snapshot) Visible(id string) bool { return s.record.Visible(id) }

// Record returns a copy of the underlying record.
func (s Snapshot) Record() Record { return s.record.Clone() }

// Manager owns the preference record for one session. It is the single
// writer: every mutation is a locked read-modify-write that persists the
// new record before returning its snapshot.
type Manager struct {
	store  Store
	key    string
	policy Policy

	mu      sync.Mutex
	entries []catalog.Entry
	rec     Record
	snap    Snapshot
}

func NewManager(store Store, key string, policy Policy) *Manager {
	if key == "" {
		key = StorageKey
	}
	return &Manager{store: store, key: key, policy: policy}
}

// Attach reconciles the stored record against a freshly built catalog and
// persists the result if it changed. Missing or corrupt stored data falls
// back to defaults; storage failures are logged, never returned, so the
// dashboard keeps working in memory.
func (m *Manager) Attach(entries []catalog.Entry) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, loaded := m.loadLocked()
	rec := Reconcile(stored, entries, m.policy)

	if !loaded || !rec.Equal(*stored) {
		m.persistLocked(rec)
	}

	m.entries = slices.Clone(entries)
	m.rec = rec
	m.snap = newSnapshot(rec)
	return m.snap
}

func (m *Manager) loadLocked() (*Record, bool) {
	if m.store == nil {
		return nil, false
	}
	raw, ok, err := m.store.Load(m.key)
	if err != nil {
		appLog.Error("preferences load failed; using defaults", err, "key", m.key)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	rec, err := Unmarshal(raw)
	if err != nil {
		appLog.Error("preferences malformed; using defaults", err, "key", m.key)
		return nil, false
	}
	return &rec, true
}

func (m *Manager) persistLocked(rec Record) {
	if m.store == nil {
		return
	}
	data, err := rec.Marshal()
	if err == nil {
		err = m.store.Save(m.key, data)
	}
	if err != nil {
		appLog.Error("preferences save failed", err, "key", m.key)
	}
}

// Snapshot returns the current snapshot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// update applies fn to a copy of the record, persists and publishes it.
func (m *Manager) update(fn func(rec *Record) error) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		return m.snap, ErrNotAttached
	}
	next := m.rec.Clone()
	if err := fn(&next); err != nil {
		return m.snap, err
	}
	m.persistLocked(next)
	m.rec = next
	m.snap = newSnapshot(next)
	return m.snap, nil
}

// Reorder moves the id at oldIndex to newIndex in the full order, shifting
// the ids in between.
func (m *Manager) Reorder(oldIndex, newIndex int) (Snapshot, error) {
	return m.update(func(rec *Record) error {
		n := len(rec.Order)
		if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
			return fmt.Errorf("%w: %d -> %d of %d", ErrIndexOutOfRange, oldIndex, newIndex, n)
		}
		rec.Order = arrayMove(rec.Order, oldIndex, newIndex)
		return nil
	})
}

// Move drops activeID at overID's position, the drag-and-drop form of
// Reorder.
func (m *Manager) Move(activeID, overID string) (Snapshot, error) {
	return m.update(func(rec *Record) error {
		from := slices.Index(rec.Order, activeID)
		to := slices.Index(rec.Order, overID)
		if from < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownID, activeID)
		}
		if to < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownID, overID)
		}
		rec.Order = arrayMove(rec.Order, from, to)
		return nil
	})
}

// ToggleVisibility flips one event between shown and hidden.
func (m *Manager) ToggleVisibility(id string) (Snapshot, error) {
	return m.update(func(rec *Record) error {
		if !slices.Contains(rec.Order, id) {
			return fmt.Errorf("%w: %q", ErrUnknownID, id)
		}
		if rec.Visible(id) {
			rec.Visibility[id] = false
		} else {
			delete(rec.Visibility, id)
		}
		return nil
	})
}

// ToggleCategory shows or hides every event of a category.
func (m *Manager) ToggleCategory(category model.Category, show bool) (Snapshot, error) {
	return m.update(func(rec *Record) error {
		for _, e := range m.entries {
			if e.Category != category {
				continue
			}
			if show {
				delete(rec.Visibility, e.ID)
			} else {
				rec.Visibility[e.ID] = false
			}
		}
		return nil
	})
}

// Reset restores catalog order and default visibility.
func (m *Manager) Reset() (Snapshot, error) {
	return m.update(func(rec *Record) error {
		*rec = Defaults(m.entries, m.policy)
		return nil
	})
}

// SetOrder replaces the ordering, e.g. after sorting by date. ids must be a
// permutation of the attached catalog.
func (m *Manager) SetOrder(ids []string) (Snapshot, error) {
	return m.update(func(rec *Record) error {
		if len(ids) != len(m.entries) {
			return fmt.Errorf("%w: order has %d ids, catalog %d", ErrUnknownID, len(ids), len(m.entries))
		}
		known := make(map[string]bool, len(m.entries))
		for _, e := range m.entries {
			known[e.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				return fmt.Errorf("%w: %q", ErrUnknownID, id)
			}
			delete(known, id)
		}
		rec.Order = slices.Clone(ids)
		return nil
	})
}

// CategoryShown reports whether any event of category is visible.
func (m *Manager) CategoryShown(category model.Category) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Category == category && m.rec.Visible(e.ID) {
			return true
		}
	}
	return false
}

func arrayMove(s []string, from, to int) []string {
	out := slices.Clone(s)
	v := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, v)
}
