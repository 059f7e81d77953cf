package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTimetableHandler_Get(t *testing.T) {
	setupDatabase(t)

	rec := httptest.NewRecorder()
	NewTimetableHandler().Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/timetable", nil))
	assertStatusCode(t, rec, http.StatusOK)

	var resp TimetableResponse
	parseJSONResponse(t, rec, &resp)
	if len(resp.Entries) != 2 || resp.Valid != 2 || len(resp.Warnings) != 0 {
		t.Errorf("unexpected timetable %+v", resp)
	}
}

func TestTimetableHandler_UploadCSV(t *testing.T) {
	_, store := setupDatabase(t)

	body := "Day,Start_Time,End_Time,Subject\n" +
		"Monday,09:00,10:00,Mathematics\n" +
		"Monday,9am,10:00,Broken\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	NewTimetableHandler().Upload(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	var resp TimetableResponse
	parseJSONResponse(t, rec, &resp)
	if len(resp.Entries) != 2 || resp.Valid != 1 || len(resp.Warnings) == 0 {
		t.Errorf("expected upload with a warning for the malformed row, got %+v", resp)
	}
	if resp.Warnings[0].Row != 1 {
		t.Errorf("expected warning on row 1, got %+v", resp.Warnings)
	}

	stored, _ := store.Entries(req.Context())
	if len(stored) != 2 || stored[0].Subject != "Mathematics" {
		t.Errorf("store not replaced: %+v", stored)
	}
}

func TestTimetableHandler_UploadYAMLByQuery(t *testing.T) {
	_, store := setupDatabase(t)

	body := "timetable:\n  - {day: Friday, start: \"08:00\", end: \"09:00\", subject: Chemistry}\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable?format=yaml", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewTimetableHandler().Upload(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	stored, _ := store.Entries(req.Context())
	if len(stored) != 1 || stored[0].Day != "Friday" {
		t.Errorf("unexpected stored timetable %+v", stored)
	}
}

func TestTimetableHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		body   string
		status int
	}{
		{"unknown format", "?format=xml", "<x/>", http.StatusBadRequest},
		{"broken yaml", "?format=yaml", "timetable: [", http.StatusBadRequest},
		{"empty", "?format=yaml", "timetable: []\n", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, store := setupDatabase(t)
			rec := httptest.NewRecorder()
			NewTimetableHandler().Upload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/timetable"+tt.query, strings.NewReader(tt.body)))
			assertStatusCode(t, rec, tt.status)

			if stored, _ := store.Entries(t.Context()); len(stored) != 2 {
				t.Error("rejected upload must keep the stored timetable")
			}
		})
	}
}

func TestTimetableHandler_StoreFailure(t *testing.T) {
	_, store := setupDatabase(t)
	store.ReplaceError = errors.New("disk full")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable?format=csv", strings.NewReader("Day,Start_Time,End_Time,Subject\nMonday,09:00,10:00,Maths\n"))
	rec := httptest.NewRecorder()
	NewTimetableHandler().Upload(rec, req)
	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertJSONError(t, rec, "failed to store timetable")
}
