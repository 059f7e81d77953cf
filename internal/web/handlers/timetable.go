package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// TimetableHandler handles timetable download and upload
type TimetableHandler struct{}

// NewTimetableHandler creates a new timetable handler
func NewTimetableHandler() *TimetableHandler {
	return &TimetableHandler{}
}

// TimetableResponse is the stored timetable with validation warnings.
type TimetableResponse struct {
	Entries  []timetable.Entry   `json:"entries"`
	Valid    int                 `json:"valid"`
	Warnings []timetable.Warning `json:"warnings"`
}

func newTimetableResponse(entries []timetable.Entry) TimetableResponse {
	if entries == nil {
		entries = []timetable.Entry{}
	}
	warnings := timetable.Validate(entries)
	if warnings == nil {
		warnings = []timetable.Warning{}
	}
	return TimetableResponse{
		Entries:  entries,
		Valid:    timetable.ValidCount(entries),
		Warnings: warnings,
	}
}

// Get returns the stored timetable in storage order
func (h *TimetableHandler) Get(w http.ResponseWriter, r *http.Request) {
	store := getTimetableStore(w, r)
	if store == nil {
		return
	}

	entries, err := store.Entries(r.Context())
	if err != nil {
		log.Printf("Failed to read timetable: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read timetable")
		return
	}
	respondJSON(w, http.StatusOK, newTimetableResponse(entries))
}

// Upload replaces the stored timetable with a YAML or CSV body. The format is
// taken from ?format= or the Content-Type. Warnings never block the upload.
func (h *TimetableHandler) Upload(w http.ResponseWriter, r *http.Request) {
	store := getTimetableStore(w, r)
	if store == nil {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxTimetableSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "timetable too large")
		return
	}

	format := timetable.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = timetable.FormatFromContentType(r.Header.Get("Content-Type"))
	}

	entries, err := timetable.Parse(data, format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(entries) == 0 {
		respondError(w, http.StatusBadRequest, "timetable has no entries")
		return
	}

	if err := store.ReplaceTimetable(r.Context(), entries); err != nil {
		log.Printf("Failed to store timetable: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store timetable")
		return
	}

	resp := newTimetableResponse(entries)
	log.Printf("Timetable replaced: %d entries, %d warnings", len(entries), len(resp.Warnings))
	respondJSON(w, http.StatusOK, resp)
}
