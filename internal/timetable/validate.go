package timetable

import (
	"fmt"
	"strings"
	"time"
)

// Warning describes a problem found in an uploaded timetable. Warnings never
// block an upload: the resolver skips malformed rows and picks the first
// overlapping entry.
type Warning struct {
	Row     int    `json:"row"` // zero-based position in storage order
	Message string `json:"message"`
}

var weekdays = map[string]bool{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekdays[strings.ToLower(d.String())] = true
	}
}

// Validate reports malformed rows, unknown weekdays, inverted intervals and
// same-subject overlaps within a day.
func Validate(entries []Entry) []Warning {
	var warnings []Warning

	type parsed struct {
		row  int
		day  string
		slot Slot
	}
	var valid []parsed

	for i, e := range entries {
		day := strings.ToLower(strings.TrimSpace(e.Day))
		if !weekdays[day] {
			warnings = append(warnings, Warning{Row: i, Message: fmt.Sprintf("unknown weekday %q", e.Day)})
			continue
		}
		if strings.TrimSpace(e.Subject) == "" {
			warnings = append(warnings, Warning{Row: i, Message: "missing subject"})
		}
		slot, err := e.Slot()
		if err != nil {
			warnings = append(warnings, Warning{Row: i, Message: err.Error()})
			continue
		}
		if slot.endOffset < slot.startOffset {
			warnings = append(warnings, Warning{Row: i, Message: fmt.Sprintf("slot %s ends before it starts", slot.ID)})
			continue
		}
		valid = append(valid, parsed{row: i, day: day, slot: slot})
	}

	for i := range valid {
		for j := i + 1; j < len(valid); j++ {
			a, b := valid[i], valid[j]
			if a.day != b.day || !strings.EqualFold(a.slot.Subject, b.slot.Subject) {
				continue
			}
			if a.slot.startOffset <= b.slot.endOffset && b.slot.startOffset <= a.slot.endOffset {
				warnings = append(warnings, Warning{
					Row: b.row,
					Message: fmt.Sprintf("%s %s overlaps row %d (%s); the earlier row wins",
						b.slot.Subject, b.slot.ID, a.row, a.slot.ID),
				})
			}
		}
	}

	return warnings
}

// ValidCount returns the number of entries the resolver can use.
func ValidCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if !weekdays[strings.ToLower(strings.TrimSpace(e.Day))] {
			continue
		}
		if s, err := e.Slot(); err == nil && s.endOffset >= s.startOffset {
			n++
		}
	}
	return n
}
