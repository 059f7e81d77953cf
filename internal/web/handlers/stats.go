package handlers

import (
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/report"
)

const statsCacheTTL = 30 * time.Second

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles dashboard statistics and the per-student report
type StatsHandler struct {
	roster attendance.Roster
	loc    *time.Location
	now    func() time.Time
	cache  statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(roster attendance.Roster, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &StatsHandler{
		roster: roster,
		loc:    loc,
		now:    time.Now,
	}
}

// InvalidateCache clears the cached stats so the next request reads the ledger
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	Students int           `json:"students"`
	Overall  report.Counts `json:"overall"`
	Today    report.Counts `json:"today"`
	Date     string        `json:"date"`
}

// Get returns present/absent counts over the whole ledger and for today
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	ledger := getLedgerReader(w, r)
	if ledger == nil {
		return
	}

	records, err := ledger.Scan(r.Context())
	if err != nil {
		log.Printf("Failed to scan ledger: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}

	today := h.now().In(h.loc).Format(database.DateLayout)
	todays := database.LedgerFilter{Date: today}
	var todayRecords []database.AttendanceRecord
	for _, rec := range records {
		if todays.Matches(rec) {
			todayRecords = append(todayRecords, rec)
		}
	}

	resp := &StatsResponse{
		Overall: report.Count(records),
		Today:   report.Count(todayRecords),
		Date:    today,
	}
	if names, err := h.roster.Names(r.Context()); err != nil {
		log.Printf("Failed to read roster for stats: %v", err)
	} else {
		resp.Students = len(names)
	}

	h.cache.set(resp)
	respondJSON(w, http.StatusOK, resp)
}

// Report returns one summary per roster student. ?name= filters by a
// diacritic-insensitive substring.
func (h *StatsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ledger := getLedgerReader(w, r)
	if ledger == nil {
		return
	}

	names, err := h.roster.Names(r.Context())
	if err != nil {
		log.Printf("Failed to read roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read roster")
		return
	}

	records, err := ledger.Scan(r.Context())
	if err != nil {
		log.Printf("Failed to scan ledger: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}

	respondJSON(w, http.StatusOK, report.Summarize(records, names, r.URL.Query().Get("name")))
}

// Student returns the summary of one roster student
func (h *StatsHandler) Student(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	ledger := getLedgerReader(w, r)
	if ledger == nil {
		return
	}

	names, err := h.roster.Names(r.Context())
	if err != nil {
		log.Printf("Failed to read roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read roster")
		return
	}
	if !slices.Contains(names, name) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	records, err := ledger.List(r.Context(), database.LedgerFilter{Name: name})
	if err != nil {
		log.Printf("Failed to list attendance for %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}

	summary := report.Summarize(records, []string{name}, "")[0]
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"records": records,
	})
}
