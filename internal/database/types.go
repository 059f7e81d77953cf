package database

import (
	"time"
)

// AttendanceStatus is the outcome recorded for a student in a lecture slot.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
)

// AttendanceRecord is one immutable ledger row. At most one record exists per
// (Name, Date, Subject), whatever its status.
type AttendanceRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Date      string           `json:"date"` // 2006-01-02
	Day       string           `json:"day"`  // Monday
	Time      string           `json:"time"` // 15:04:05
	Slot      string           `json:"slot"` // 09:00-10:00
	Subject   string           `json:"subject"`
	Status    AttendanceStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// LedgerKey identifies the uniqueness partition of a record.
type LedgerKey struct {
	Name    string
	Date    string
	Subject string
}

// Key returns the uniqueness key of the record.
func (r AttendanceRecord) Key() LedgerKey {
	return LedgerKey{Name: r.Name, Date: r.Date, Subject: r.Subject}
}

// LedgerFilter narrows List results. Empty fields match everything.
type LedgerFilter struct {
	Date    string
	Subject string
	Name    string
	Status  AttendanceStatus
}

// Matches reports whether rec passes the filter.
func (f LedgerFilter) Matches(rec AttendanceRecord) bool {
	if f.Date != "" && rec.Date != f.Date {
		return false
	}
	if f.Subject != "" && rec.Subject != f.Subject {
		return false
	}
	if f.Name != "" && rec.Name != f.Name {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}

// StoredTemplate is an enrolled face embedding for one student.
type StoredTemplate struct {
	ID        int64
	Name      string    // student identity (enrolment group)
	Source    string    // image path the embedding was computed from
	Embedding []float32
	DetScore  float64
	Model     string
	Dim       int
	CreatedAt time.Time
}
