package database

import (
	"context"

	"github.com/kozaktomas/classroll/internal/timetable"
)

// LedgerReader provides read-only access to attendance records
type LedgerReader interface {
	// Exists checks whether a record with the (name, date, subject) key exists, regardless of status
	Exists(ctx context.Context, name, date, subject string) (bool, error)
	// MarkedNames returns the names that already have a record for (date, subject)
	MarkedNames(ctx context.Context, date, subject string) (map[string]bool, error)
	// Scan returns every record in insertion order
	Scan(ctx context.Context) ([]AttendanceRecord, error)
	// List returns the records matching the filter in insertion order
	List(ctx context.Context, filter LedgerFilter) ([]AttendanceRecord, error)
}

// LedgerWriter provides append-only write access to attendance records
type LedgerWriter interface {
	LedgerReader

	// AppendIfAbsent appends rec unless a record with the same (name, date, subject)
	// key already exists. The check and the append are a single atomic step:
	// of two concurrent writers racing on one key, exactly one gets true.
	AppendIfAbsent(ctx context.Context, rec AttendanceRecord) (bool, error)
}

// TemplateReader provides read-only access to enrolled face templates
type TemplateReader interface {
	// GetTemplates returns all templates in enrolment order (name, then id)
	GetTemplates(ctx context.Context) ([]StoredTemplate, error)
	// Count returns the total number of templates stored
	Count(ctx context.Context) (int, error)
}

// TemplateWriter provides write access to enrolled face templates
type TemplateWriter interface {
	TemplateReader

	// ReplaceTemplates stores the templates of one student, replacing any existing ones
	ReplaceTemplates(ctx context.Context, name string, templates []StoredTemplate) error
	// DeleteTemplates removes all templates of one student
	DeleteTemplates(ctx context.Context, name string) error
}

// TimetableStore persists the weekly timetable. It is also a timetable.Source.
type TimetableStore interface {
	timetable.Source

	// ReplaceTimetable swaps the whole timetable, preserving the given order
	ReplaceTimetable(ctx context.Context, entries []timetable.Entry) error
}
