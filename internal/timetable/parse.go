package timetable

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a timetable file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// FormatFromPath guesses the format from a file extension. Unknown extensions
// are treated as YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	default:
		return FormatYAML
	}
}

// FormatFromContentType maps an upload content type to a format.
func FormatFromContentType(contentType string) Format {
	if strings.Contains(contentType, "csv") {
		return FormatCSV
	}
	return FormatYAML
}

type yamlFile struct {
	Timetable []Entry `yaml:"timetable"`
}

// Parse decodes a timetable in the given format. Rows are returned in file order
// without validating their time fields.
func Parse(data []byte, format Format) ([]Entry, error) {
	switch format {
	case FormatCSV:
		return parseCSV(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported timetable format %q", format)
	}
}

func parseYAML(data []byte) ([]Entry, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing timetable YAML: %w", err)
	}
	return f.Timetable, nil
}

// csvColumns maps accepted header names to Entry fields. The underscore names
// match the spreadsheet layout used by schools exporting from Excel.
var csvColumns = map[string]string{
	"day":        "day",
	"start_time": "start",
	"start":      "start",
	"end_time":   "end",
	"end":        "end",
	"subject":    "subject",
}

func parseCSV(data []byte) ([]Entry, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading timetable CSV header: %w", err)
	}

	index := make(map[string]int)
	for i, col := range header {
		if field, ok := csvColumns[strings.ToLower(strings.TrimSpace(col))]; ok {
			index[field] = i
		}
	}
	for _, field := range []string{"day", "start", "end", "subject"} {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("timetable CSV is missing the %s column", field)
		}
	}

	get := func(row []string, field string) string {
		i := index[field]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entries []Entry
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading timetable CSV: %w", err)
		}
		entries = append(entries, Entry{
			Day:     get(row, "day"),
			Start:   get(row, "start"),
			End:     get(row, "end"),
			Subject: get(row, "subject"),
		})
	}
	return entries, nil
}

// Marshal encodes entries as a YAML timetable document.
func Marshal(entries []Entry) ([]byte, error) {
	out, err := yaml.Marshal(yamlFile{Timetable: entries})
	if err != nil {
		return nil, fmt.Errorf("encoding timetable: %w", err)
	}
	return out, nil
}

// FileSource reads a YAML or CSV timetable from disk on every call, so edits to
// the file are visible without a restart.
type FileSource struct {
	Path string
}

// Entries reads and parses the file.
func (f FileSource) Entries(ctx context.Context) ([]Entry, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading timetable file: %w", err)
	}
	return Parse(data, FormatFromPath(f.Path))
}
