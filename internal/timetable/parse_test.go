package timetable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const yamlTimetable = `timetable:
  - day: Monday
    start: "09:00"
    end: "10:00"
    subject: Mathematics
  - day: Tuesday
    start: "11:00"
    end: "12:00"
    subject: Microprocessors
`

const csvTimetable = `Day,Start_Time,End_Time,Subject
Monday,09:00,10:00,Mathematics
Monday, 10:00, 11:00, Physics
`

func TestParse_YAML(t *testing.T) {
	entries, err := Parse([]byte(yamlTimetable), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Subject != "Microprocessors" || entries[1].Day != "Tuesday" {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
}

func TestParse_CSV(t *testing.T) {
	entries, err := Parse([]byte(csvTimetable), FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	want := Entry{Day: "Monday", Start: "10:00", End: "11:00", Subject: "Physics"}
	if entries[1] != want {
		t.Errorf("expected %+v, got %+v", want, entries[1])
	}
}

func TestParse_CSVMissingColumn(t *testing.T) {
	_, err := Parse([]byte("Day,Start_Time,Subject\nMonday,09:00,Mathematics\n"), FormatCSV)
	if err == nil || !strings.Contains(err.Error(), "end") {
		t.Errorf("expected missing end column error, got %v", err)
	}
}

func TestParse_CSVEmpty(t *testing.T) {
	entries, err := Parse(nil, FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	if _, err := Parse([]byte("x"), Format("xlsx")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestMarshal_RoundTripKeepsOrder(t *testing.T) {
	in := []Entry{
		{Day: "Friday", Start: "08:00", End: "09:00", Subject: "History"},
		{Day: "Friday", Start: "07:00", End: "08:00", Subject: "Art"},
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Subject != "History" || out[1].Subject != "Art" {
		t.Errorf("expected storage order to be preserved, got %+v", out)
	}
}

func TestFormatFromPath(t *testing.T) {
	if FormatFromPath("timetable.CSV") != FormatCSV {
		t.Error("expected CSV for .CSV extension")
	}
	if FormatFromPath("timetable.yml") != FormatYAML {
		t.Error("expected YAML for .yml extension")
	}
	if FormatFromContentType("text/csv; charset=utf-8") != FormatCSV {
		t.Error("expected CSV for text/csv content type")
	}
}

func TestFileSource_ReadsFreshOnEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.csv")
	if err := os.WriteFile(path, []byte(csvTimetable), 0o600); err != nil {
		t.Fatal(err)
	}

	src := FileSource{Path: path}
	entries, err := src.Entries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	updated := "Day,Start_Time,End_Time,Subject\nFriday,13:00,14:00,Chemistry\n"
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}

	entries, err = src.Entries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Subject != "Chemistry" {
		t.Errorf("expected updated timetable, got %+v", entries)
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	src := FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := src.Entries(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
