// Package effect turns per-tick countdown values into one-shot signals a
// renderer can hang announcements and celebrations on.
package effect

import (
	"slices"
	"sync"
	"time"

	"countdown/internal/calc"
)

type Kind string

const (
	KindRemaining Kind = "remaining"
	KindReached   Kind = "reached"
)

// Signal is a single edge-triggered notification for one event.
type Signal struct {
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	Seconds       int64  `json:"seconds,omitempty"`
	SpecialEffect bool   `json:"special_effect,omitempty"`
}

// DefaultNotable are the remaining-second marks announced by default.
func DefaultNotable() []int64 {
	return []int64{3600, 1800, 600, 60, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
}

type state struct {
	target    time.Time
	last      int64
	wasFuture bool
	reached   bool
}

// Tracker remembers the last observed value per event so each mark fires
// once. It is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex
	// notable is sorted descending.
	notable []int64
	states  map[string]*state
}

// NewTracker returns a tracker announcing the given marks, or
// DefaultNotable when none are passed. Non-positive marks are ignored.
func NewTracker(notable ...int64) *Tracker {
	if len(notable) == 0 {
		notable = DefaultNotable()
	}
	marks := make([]int64, 0, len(notable))
	for _, s := range notable {
		if s > 0 {
			marks = append(marks, s)
		}
	}
	slices.Sort(marks)
	marks = slices.Compact(marks)
	slices.Reverse(marks)
	return &Tracker{notable: marks, states: make(map[string]*state)}
}

// Notable returns the configured marks in descending order.
func (t *Tracker) Notable() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.notable)
}

// Observe records the event's state at now and returns the signals that
// became due since the previous observation. A mark fires when the
// remaining seconds cross it, so a late tick still announces it.
// "reached" needs the event to have been seen in the future first, so a
// restart inside the grace window does not celebrate again. A changed
// target starts a fresh cycle; if the old target has passed unannounced,
// its "reached" is emitted first.
func (t *Tracker) Observe(id, name string, special bool, target, now time.Time) []Signal {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Signal
	st, ok := t.states[id]
	if ok && !st.target.Equal(target) {
		if st.wasFuture && !st.reached && !st.target.After(now) {
			out = append(out, Signal{EventID: id, Name: name, Kind: KindReached, SpecialEffect: special})
		}
		ok = false
	}
	if !ok {
		st = &state{target: target, last: -1}
		t.states[id] = st
	}

	if target.After(now) {
		secs := calc.CalcCountdown(target, now).TotalSeconds()
		for _, n := range t.crossed(st.last, secs) {
			out = append(out, Signal{EventID: id, Name: name, Kind: KindRemaining, Seconds: n, SpecialEffect: special})
		}
		st.last = secs
		st.wasFuture = true
		return out
	}

	st.last = -1
	if st.wasFuture && !st.reached {
		st.reached = true
		out = append(out, Signal{EventID: id, Name: name, Kind: KindReached, SpecialEffect: special})
	}
	return out
}

// crossed returns the marks passed when the remaining seconds went from
// last to secs, largest first. With no previous value (last < 0) only an
// exact hit counts.
func (t *Tracker) crossed(last, secs int64) []int64 {
	var out []int64
	for _, n := range t.notable {
		switch {
		case last < 0:
			if n == secs {
				out = append(out, n)
			}
		case secs <= n && n < last:
			out = append(out, n)
		}
	}
	return out
}

// Forget drops the state kept for id.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}

// Retain drops state for every id not in keep, e.g. after a catalog rebuild.
func (t *Tracker) Retain(keep []string) {
	set := make(map[string]bool, len(keep))
	for _, id := range keep {
		set[id] = true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.states {
		if !set[id] {
			delete(t.states, id)
		}
	}
}
