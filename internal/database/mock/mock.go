// Package mock provides in-memory implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/timetable"
)

type partitionKey struct {
	date    string
	subject string
}

// MockLedger is an in-memory database.LedgerWriter. AppendIfAbsent runs its
// check-then-append under a lock scoped to the (date, subject) partition.
type MockLedger struct {
	mu      sync.RWMutex // guards records, keys and partitions
	records []database.AttendanceRecord
	keys    map[database.LedgerKey]bool

	partitions map[partitionKey]*sync.Mutex

	appends int // successful appends, for assertions

	// Error injection
	ExistsError      error
	MarkedNamesError error
	ScanError        error
	AppendError      error
	// AppendErrorFor fails appends for a single student name only.
	AppendErrorFor map[string]error
}

// NewMockLedger creates a new empty ledger
func NewMockLedger() *MockLedger {
	return &MockLedger{
		keys:       make(map[database.LedgerKey]bool),
		partitions: make(map[partitionKey]*sync.Mutex),
	}
}

func (m *MockLedger) partition(date, subject string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := partitionKey{date: date, subject: subject}
	p, ok := m.partitions[k]
	if !ok {
		p = &sync.Mutex{}
		m.partitions[k] = p
	}
	return p
}

// AppendIfAbsent appends rec unless its key exists
func (m *MockLedger) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if m.AppendError != nil {
		return false, m.AppendError
	}
	if err := m.AppendErrorFor[rec.Name]; err != nil {
		return false, err
	}

	p := m.partition(rec.Date, rec.Subject)
	p.Lock()
	defer p.Unlock()

	m.mu.RLock()
	exists := m.keys[rec.Key()]
	m.mu.RUnlock()
	if exists {
		return false, nil
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.keys[rec.Key()] = true
	m.appends++
	m.mu.Unlock()
	return true, nil
}

// AddRecord seeds a record without any checks
func (m *MockLedger) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	m.keys[rec.Key()] = true
}

// Exists checks whether the key exists
func (m *MockLedger) Exists(ctx context.Context, name, date, subject string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keys[database.LedgerKey{Name: name, Date: date, Subject: subject}], nil
}

// MarkedNames returns the names with a record for (date, subject)
func (m *MockLedger) MarkedNames(ctx context.Context, date, subject string) (map[string]bool, error) {
	if m.MarkedNamesError != nil {
		return nil, m.MarkedNamesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make(map[string]bool)
	for _, r := range m.records {
		if r.Date == date && r.Subject == subject {
			names[r.Name] = true
		}
	}
	return names, nil
}

// Scan returns a copy of all records
func (m *MockLedger) Scan(ctx context.Context) ([]database.AttendanceRecord, error) {
	if m.ScanError != nil {
		return nil, m.ScanError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records), nil
}

// List returns the records matching the filter
func (m *MockLedger) List(ctx context.Context, filter database.LedgerFilter) ([]database.AttendanceRecord, error) {
	if m.ScanError != nil {
		return nil, m.ScanError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceRecord
	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Records returns a copy of all records
func (m *MockLedger) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// AppendCount returns the number of successful AppendIfAbsent calls
func (m *MockLedger) AppendCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// MockTemplateStore is an in-memory database.TemplateWriter
type MockTemplateStore struct {
	mu        sync.RWMutex
	templates []database.StoredTemplate
	nextID    int64

	GetError     error
	ReplaceError error
}

// NewMockTemplateStore creates a new empty template store
func NewMockTemplateStore() *MockTemplateStore {
	return &MockTemplateStore{nextID: 1}
}

// GetTemplates returns all templates ordered by name then id
func (m *MockTemplateStore) GetTemplates(ctx context.Context) ([]database.StoredTemplate, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.templates)
	slices.SortStableFunc(out, func(a, b database.StoredTemplate) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

// Count returns the number of templates
func (m *MockTemplateStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates), nil
}

// ReplaceTemplates replaces the templates of one student
func (m *MockTemplateStore) ReplaceTemplates(ctx context.Context, name string, templates []database.StoredTemplate) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = slices.DeleteFunc(m.templates, func(t database.StoredTemplate) bool { return t.Name == name })
	for _, t := range templates {
		t.ID = m.nextID
		t.Name = name
		m.nextID++
		m.templates = append(m.templates, t)
	}
	return nil
}

// DeleteTemplates removes the templates of one student
func (m *MockTemplateStore) DeleteTemplates(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = slices.DeleteFunc(m.templates, func(t database.StoredTemplate) bool { return t.Name == name })
	return nil
}

// MockTimetableStore is an in-memory database.TimetableStore
type MockTimetableStore struct {
	mu      sync.RWMutex
	entries []timetable.Entry

	EntriesError error
	ReplaceError error
}

// NewMockTimetableStore creates a store holding entries
func NewMockTimetableStore(entries ...timetable.Entry) *MockTimetableStore {
	return &MockTimetableStore{entries: entries}
}

// Entries returns the stored timetable in order
func (m *MockTimetableStore) Entries(ctx context.Context) ([]timetable.Entry, error) {
	if m.EntriesError != nil {
		return nil, m.EntriesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries), nil
}

// ReplaceTimetable swaps the stored timetable
func (m *MockTimetableStore) ReplaceTimetable(ctx context.Context, entries []timetable.Entry) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = slices.Clone(entries)
	return nil
}
