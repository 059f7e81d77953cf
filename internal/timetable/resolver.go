package timetable

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Source supplies the timetable in storage order. It is scanned in full on
// every resolution, so an updated timetable is picked up on the next call.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// Resolver maps a point in time to the active lecture slot.
type Resolver struct {
	source Source
	loc    *time.Location
}

// NewResolver creates a resolver over source. Weekday and time of day are
// evaluated in loc (time.Local when nil).
func NewResolver(source Source, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{source: source, loc: loc}
}

// Location returns the location used to evaluate weekdays and times of day.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the first entry (in storage order) for now's weekday whose
// [start, end] interval contains now's time of day, or nil when no lecture is
// running. Entries with unparsable times are skipped.
func (r *Resolver) Resolve(ctx context.Context, now time.Time) (*Slot, error) {
	entries, err := r.source.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading timetable: %w", err)
	}

	now = now.In(r.loc)
	day := now.Weekday().String()

	for _, e := range entries {
		if !strings.EqualFold(strings.TrimSpace(e.Day), day) {
			continue
		}
		slot, err := e.Slot()
		if err != nil {
			log.Printf("Skipping timetable entry for %s: %v", day, err)
			continue
		}
		if slot.Contains(now) {
			return &slot, nil
		}
	}
	return nil, nil
}

// StaticSource is a fixed, in-memory timetable.
type StaticSource []Entry

// Entries returns a copy of the static entries.
func (s StaticSource) Entries(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, len(s))
	copy(out, s)
	return out, nil
}
