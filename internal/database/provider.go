package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotInitialized is returned when a repository is requested before a backend registered it.
var ErrNotInitialized = errors.New("database backend not initialized: DATABASE_URL is required")

var (
	providerMu       sync.RWMutex
	ledgerWriter     func() LedgerWriter
	templateWriter   func() TemplateWriter
	timetableStore   func() TimetableStore
	ledgerBackend    string
	backendAvailable bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the serve/CLI wiring to avoid import cycles.
func RegisterPostgresBackend(
	ledger func() LedgerWriter,
	templates func() TemplateWriter,
	timetable func() TimetableStore,
) {
	providerMu.Lock()
	defer providerMu.Unlock()
	ledgerWriter = ledger
	templateWriter = templates
	timetableStore = timetable
	ledgerBackend = "postgres"
	backendAvailable = true
}

// RegisterLedgerWriter overrides the ledger constructor, e.g. with the MariaDB ledger.
func RegisterLedgerWriter(backend string, ledger func() LedgerWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	ledgerWriter = ledger
	ledgerBackend = backend
}

// LedgerBackend returns the name of the registered ledger backend.
func LedgerBackend() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return ledgerBackend
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return backendAvailable
}

// GetLedgerWriter returns the registered attendance ledger
func GetLedgerWriter(ctx context.Context) (LedgerWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !backendAvailable {
		return nil, ErrNotInitialized
	}
	if ledgerWriter == nil {
		return nil, fmt.Errorf("ledger writer not registered")
	}
	return ledgerWriter(), nil
}

// GetLedgerReader returns the registered attendance ledger for read-only use
func GetLedgerReader(ctx context.Context) (LedgerReader, error) {
	return GetLedgerWriter(ctx)
}

// GetTemplateWriter returns the registered face template repository
func GetTemplateWriter(ctx context.Context) (TemplateWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !backendAvailable {
		return nil, ErrNotInitialized
	}
	if templateWriter == nil {
		return nil, fmt.Errorf("template writer not registered")
	}
	return templateWriter(), nil
}

// GetTimetableStore returns the registered timetable store
func GetTimetableStore(ctx context.Context) (TimetableStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !backendAvailable {
		return nil, ErrNotInitialized
	}
	if timetableStore == nil {
		return nil, fmt.Errorf("timetable store not registered")
	}
	return timetableStore(), nil
}

// ResetForTesting clears all registrations.
func ResetForTesting() {
	providerMu.Lock()
	defer providerMu.Unlock()
	ledgerWriter = nil
	templateWriter = nil
	timetableStore = nil
	ledgerBackend = ""
	backendAvailable = false
}
