package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kozaktomas/classroll/internal/database"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// getLedgerReader returns the registered ledger or writes a 503 and returns nil.
func getLedgerReader(w http.ResponseWriter, r *http.Request) database.LedgerReader {
	ledger, err := database.GetLedgerReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "attendance ledger not available")
		return nil
	}
	return ledger
}

// getTimetableStore returns the registered timetable store or writes a 503 and returns nil.
func getTimetableStore(w http.ResponseWriter, r *http.Request) database.TimetableStore {
	store, err := database.GetTimetableStore(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "timetable store not available")
		return nil
	}
	return store
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"ledger": database.LedgerBackend(),
	})
}
