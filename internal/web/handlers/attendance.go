package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/report"
)

// AttendanceHandler serves the attendance ledger
type AttendanceHandler struct{}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler() *AttendanceHandler {
	return &AttendanceHandler{}
}

// AttendanceResponse is the filtered ledger with its status breakdown.
type AttendanceResponse struct {
	Records []database.AttendanceRecord `json:"records"`
	Counts  report.Counts               `json:"counts"`
}

// parseLedgerFilter reads date, subject, name and status query parameters.
func parseLedgerFilter(r *http.Request) (database.LedgerFilter, error) {
	q := r.URL.Query()
	filter := database.LedgerFilter{
		Date:    q.Get("date"),
		Subject: q.Get("subject"),
		Name:    q.Get("name"),
	}
	if filter.Date != "" {
		if _, err := time.Parse(database.DateLayout, filter.Date); err != nil {
			return filter, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", filter.Date)
		}
	}
	switch status := database.AttendanceStatus(q.Get("status")); status {
	case "", database.StatusPresent, database.StatusAbsent:
		filter.Status = status
	default:
		return filter, fmt.Errorf("invalid status %q", status)
	}
	return filter, nil
}

// List returns ledger records in append order. ?format=csv streams a CSV export.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	ledger := getLedgerReader(w, r)
	if ledger == nil {
		return
	}

	filter, err := parseLedgerFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := ledger.List(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list attendance: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance.csv"`)
		if err := report.WriteCSV(w, records); err != nil {
			log.Printf("Failed to write attendance CSV: %v", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, AttendanceResponse{
		Records: records,
		Counts:  report.Count(records),
	})
}
