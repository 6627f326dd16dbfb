// Package prefs keeps the user's event ordering and visibility in sync
// with a catalog that changes between runs.
package prefs

import (
	"encoding/json"
	"maps"
	"slices"

	"countdown/internal/catalog"
	"countdown/internal/model"
)

// Record is the persisted preference blob. A missing visibility entry
// means visible; only hidden ids are stored as false.
type Record struct {
	Order      []string        `json:"order"`
	Visibility map[string]bool `json:"visibility"`
}

// Policy decides which categories a fresh record shows.
type Policy struct {
	ShownByDefault []model.Category
}

// DefaultPolicy shows the curated set and Japanese holidays.
func DefaultPolicy() Policy {
	return Policy{ShownByDefault: []model.Category{model.CategoryDefault, "JP"}}
}

func (p Policy) shows(c model.Category) bool {
	return slices.Contains(p.ShownByDefault, c)
}

// Clone returns a deep copy with non-nil fields.
func (r Record) Clone() Record {
	out := Record{
		Order:      slices.Clone(r.Order),
		Visibility: maps.Clone(r.Visibility),
	}
	if out.Order == nil {
		out.Order = []string{}
	}
	if out.Visibility == nil {
		out.Visibility = map[string]bool{}
	}
	return out
}

// Equal compares order and the effective visibility of both records.
func (r Record) Equal(o Record) bool {
	if !slices.Equal(r.Order, o.Order) {
		return false
	}
	return maps.Equal(r.Visibility, o.Visibility)
}

// Visible reports whether id is shown under this record.
func (r Record) Visible(id string) bool {
	v, ok := r.Visibility[id]
	return !ok || v
}

func (r Record) Marshal() (string, error) {
	data, err := json.Marshal(r.Clone())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Unmarshal parses a stored blob. Any parse failure, including a JSON
// null, is reported as an error so the caller can fall back to defaults.
func Unmarshal(s string) (Record, error) {
	var raw *Record
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Record{}, err
	}
	if raw == nil {
		return Record{}, errMalformed
	}
	return raw.Clone(), nil
}

// Defaults returns the fresh-install record for entries: catalog order,
// categories outside the policy hidden.
func Defaults(entries []catalog.Entry, policy Policy) Record {
	rec := Record{Order: make([]string, 0, len(entries)), Visibility: map[string]bool{}}
	for _, e := range entries {
		rec.Order = append(rec.Order, e.ID)
		if !policy.shows(e.Category) {
			rec.Visibility[e.ID] = false
		}
	}
	return rec
}

// Reconcile merges a stored record (nil when absent or unreadable) with
// the current catalog entries.
//
// The result lists every catalog id exactly once: surviving ids keep the
// user's relative order, new ids are appended in catalog order, ids that
// left the catalog are dropped. Visibility carries over, pruned to the
// catalog. A nil stored record starts from an empty order with the
// policy's default visibility.
func Reconcile(stored *Record, entries []catalog.Entry, policy Policy) Record {
	var base Record
	if stored == nil {
		base = Record{Visibility: map[string]bool{}}
		for _, e := range entries {
			if !policy.shows(e.Category) {
				base.Visibility[e.ID] = false
			}
		}
	} else {
		base = stored.Clone()
	}

	current := make(map[string]bool, len(entries))
	for _, e := range entries {
		current[e.ID] = true
	}

	order := make([]string, 0, len(entries))
	placed := make(map[string]bool, len(entries))
	for _, id := range base.Order {
		if current[id] && !placed[id] {
			placed[id] = true
			order = append(order, id)
		}
	}
	for _, e := range entries {
		if !placed[e.ID] {
			placed[e.ID] = true
			order = append(order, e.ID)
		}
	}

	vis := make(map[string]bool, len(base.Visibility))
	for id, v := range base.Visibility {
		if current[id] {
			vis[id] = v
		}
	}

	return Record{Order: order, Visibility: vis}
}
