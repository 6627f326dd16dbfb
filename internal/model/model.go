package model

import (
	"errors"
	"fmt"
	"time"

	"countdown/internal/calc"
)

// ErrUnresolvable is returned when an event's resolver fails, panics or
// produces no usable instant. Such an event is skipped by any computation
// that needs its date.
var ErrUnresolvable = errors.New("event target unresolvable")

// Category groups events for bulk visibility toggling.
type Category string

// CategoryDefault is the curated built-in set.
const CategoryDefault Category = "DEFAULT"

// TargetKind tags which resolution mode a Target carries.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetFixed
	TargetDynamic
)

func (k TargetKind) String() string {
	switch k {
	case TargetFixed:
		return "fixed"
	case TargetDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// DynamicFunc resolves an event's next instant from the current time.
// ok=false means there is no occurrence (e.g. no streak in the horizon).
type DynamicFunc func(now time.Time) (t time.Time, ok bool)

// Target is how an event finds its instant: either a function of a
// calendar year (fixed-date events) or a function of now (dynamic rules).
// Exactly one of the two is set; use FixedTarget / DynamicTarget.
type Target struct {
	kind    TargetKind
	forYear calc.YearFunc
	fromNow DynamicFunc
}

func FixedTarget(fn calc.YearFunc) Target {
	return Target{kind: TargetFixed, forYear: fn}
}

func DynamicTarget(fn DynamicFunc) Target {
	return Target{kind: TargetDynamic, fromNow: fn}
}

// OnDate is a fixed target that always resolves to the same instant,
// whatever year is asked for.
func OnDate(t time.Time) Target {
	return FixedTarget(func(int, *time.Location) time.Time { return t })
}

func (t Target) Kind() TargetKind { return t.kind }

// Occurrence is the concrete cycle an event is in at a given now.
type Occurrence struct {
	// Target is the instant being counted toward (or up from).
	Target time.Time
	// Start is the previous cycle's instant, used as the progress anchor.
	Start time.Time
	// CountUp is true while a just-passed instant is inside its grace window.
	CountUp bool
}

// dynamicCycle is the assumed span of one cycle for dynamic rules.
const dynamicCycle = 7

// Occurrence resolves the cycle relevant at now. Fixed targets follow the
// yearly grace-window policy; dynamic targets anchor their progress one
// week before the target.
func (t Target) Occurrence(now time.Time, grace time.Duration) (occ Occurrence, err error) {
	defer func() {
		if r := recover(); r != nil {
			occ = Occurrence{}
			err = fmt.Errorf("%w: resolver panic: %v", ErrUnresolvable, r)
		}
	}()

	switch t.kind {
	case TargetFixed:
		if t.forYear == nil {
			return Occurrence{}, ErrUnresolvable
		}
		target, start, countUp := calc.FixedOccurrence(t.forYear, now, grace)
		if target.IsZero() {
			return Occurrence{}, ErrUnresolvable
		}
		return Occurrence{Target: target, Start: start, CountUp: countUp}, nil

	case TargetDynamic:
		if t.fromNow == nil {
			return Occurrence{}, ErrUnresolvable
		}
		target, ok := t.fromNow(now)
		if !ok || target.IsZero() {
			return Occurrence{}, ErrUnresolvable
		}
		return Occurrence{
			Target:  target,
			Start:   calc.AddDays(target, -dynamicCycle),
			CountUp: !target.After(now),
		}, nil

	default:
		return Occurrence{}, ErrUnresolvable
	}
}

// Resolve returns the instant the event is tied to at now, using the
// default grace window.
func (t Target) Resolve(now time.Time) (time.Time, error) {
	occ, err := t.Occurrence(now, calc.DefaultGrace)
	if err != nil {
		return time.Time{}, err
	}
	return occ.Target, nil
}

// Event is one countable thing on the dashboard.
type Event struct {
	// ID is stable across catalog rebuilds; preferences key on it.
	ID string

	Name  string
	Emoji string
	Color string

	Category Category

	// SpecialEffect asks the renderer for celebration effects on arrival.
	SpecialEffect bool

	Target Target
}
