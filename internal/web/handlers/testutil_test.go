package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// testLocation is the fixed zone every handler test runs in.
var testLocation = time.UTC

// tuesdayAt returns Tuesday 2 January 2024 at hh:mm in testLocation.
func tuesdayAt(hh, mm int) time.Time {
	return time.Date(2024, 1, 2, hh, mm, 0, 0, testLocation)
}

// testTimetable has a Tuesday 09:00-10:00 lecture.
func testTimetable() []timetable.Entry {
	return []timetable.Entry{
		{Day: "Tuesday", Start: "09:00", End: "10:00", Subject: "Digital Electronics"},
		{Day: "Tuesday", Start: "11:00", End: "12:00", Subject: "Microprocessors"},
	}
}

// staticRoster is an attendance.Roster over a fixed list.
type staticRoster []string

func (r staticRoster) Names(ctx context.Context) ([]string, error) {
	return r, nil
}

// setupDatabase registers in-memory repositories and deregisters them on cleanup.
func setupDatabase(t *testing.T) (*mock.MockLedger, *mock.MockTimetableStore) {
	t.Helper()
	ledger := mock.NewMockLedger()
	store := mock.NewMockTimetableStore(testTimetable()...)
	templates := mock.NewMockTemplateStore()

	database.ResetForTesting()
	database.RegisterPostgresBackend(
		func() database.LedgerWriter { return ledger },
		func() database.TemplateWriter { return templates },
		func() database.TimetableStore { return store },
	)
	t.Cleanup(database.ResetForTesting)
	return ledger, store
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
