// Package timetable resolves the lecture slot that is running at a given moment
// from a weekly timetable.
package timetable

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedEntry is returned when a timetable row has unparsable time fields.
var ErrMalformedEntry = errors.New("malformed timetable entry")

// Entry is one timetable row as stored. Times are kept as text ("09:00") so a
// malformed row only affects itself when it is resolved.
type Entry struct {
	Day     string `yaml:"day" json:"day"`
	Start   string `yaml:"start" json:"start"`
	End     string `yaml:"end" json:"end"`
	Subject string `yaml:"subject" json:"subject"`
}

// Slot is the lecture derived from an Entry for "now". It is never persisted.
type Slot struct {
	Subject string `json:"subject"`
	Start   string `json:"start"`
	End     string `json:"end"`
	ID      string `json:"slot"` // "09:00-10:00"

	startOffset time.Duration
	endOffset   time.Duration
}

// NewSlot builds a slot from its textual start and end times.
func NewSlot(subject, start, end string) (Slot, error) {
	return Entry{Subject: subject, Start: start, End: end}.Slot()
}

// Slot converts the entry into a Slot, validating both time fields.
func (e Entry) Slot() (Slot, error) {
	start, err := ParseClock(e.Start)
	if err != nil {
		return Slot{}, fmt.Errorf("start time of %q: %w", e.Subject, err)
	}
	end, err := ParseClock(e.End)
	if err != nil {
		return Slot{}, fmt.Errorf("end time of %q: %w", e.Subject, err)
	}
	s, en := strings.TrimSpace(e.Start), strings.TrimSpace(e.End)
	return Slot{
		Subject:     strings.TrimSpace(e.Subject),
		Start:       s,
		End:         en,
		ID:          s + "-" + en,
		startOffset: start,
		endOffset:   end,
	}, nil
}

// StartAt returns the slot start on the calendar day of t, in t's location.
func (s Slot) StartAt(t time.Time) time.Time {
	return atOffset(t, s.startOffset)
}

// EndAt returns the slot end on the calendar day of t, in t's location.
func (s Slot) EndAt(t time.Time) time.Time {
	return atOffset(t, s.endOffset)
}

// Contains reports whether t's time of day lies within [start, end], inclusive.
func (s Slot) Contains(t time.Time) bool {
	tod := TimeOfDay(t)
	return s.startOffset <= tod && tod <= s.endOffset
}

func atOffset(t time.Time, offset time.Duration) time.Time {
	y, m, d := t.Date()
	h := int(offset / time.Hour)
	mi := int(offset % time.Hour / time.Minute)
	sec := int(offset % time.Minute / time.Second)
	return time.Date(y, m, d, h, mi, sec, 0, t.Location())
}

// TimeOfDay returns the offset of t from its local midnight.
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseClock parses "HH:MM" (or "HH:MM:SS") into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t), nil
		}
	}
	return 0, fmt.Errorf("%w: invalid time %q", ErrMalformedEntry, s)
}
