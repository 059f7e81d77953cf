// Package report summarizes the attendance ledger per student.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kozaktomas/classroll/internal/database"
)

// StudentSummary is the attendance of one student across all recorded slots.
type StudentSummary struct {
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
	Percent    string  `json:"percent"` // "87.50%"
}

// Counts is the ledger-wide status breakdown.
type Counts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// Count tallies records by status.
func Count(records []database.AttendanceRecord) Counts {
	var c Counts
	for _, r := range records {
		switch r.Status {
		case database.StatusPresent:
			c.Present++
		case database.StatusAbsent:
			c.Absent++
		}
		c.Total++
	}
	return c
}

// Summarize returns one summary per roster student, in roster order, keeping
// only names matching nameFilter. Students without records get 0.00%.
func Summarize(records []database.AttendanceRecord, roster []string, nameFilter string) []StudentSummary {
	byName := make(map[string]*StudentSummary, len(roster))
	for _, r := range records {
		s, ok := byName[r.Name]
		if !ok {
			s = &StudentSummary{Name: r.Name}
			byName[r.Name] = s
		}
		s.Total++
		switch r.Status {
		case database.StatusPresent:
			s.Present++
		case database.StatusAbsent:
			s.Absent++
		}
	}

	summaries := make([]StudentSummary, 0, len(roster))
	for _, name := range roster {
		if !MatchesName(name, nameFilter) {
			continue
		}
		s := StudentSummary{Name: name}
		if found, ok := byName[name]; ok {
			s = *found
		}
		if s.Total > 0 {
			s.Percentage = float64(s.Present) / float64(s.Total) * 100
		}
		s.Percent = fmt.Sprintf("%.2f%%", s.Percentage)
		summaries = append(summaries, s)
	}
	return summaries
}

var recordHeader = []string{"Name", "Date", "Day", "Time", "Slot", "Subject", "Status"}

// WriteCSV writes records in ledger column order.
func WriteCSV(w io.Writer, records []database.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Name, r.Date, r.Day, r.Time, r.Slot, r.Subject, string(r.Status)}); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
