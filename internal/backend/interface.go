package backend

import (
	"context"

	"fairshare/internal/sheets"
)

// Backend is everything the services need from storage.
type Backend interface {
	sheets.SummaryReader
	sheets.SummaryWriter
	sheets.PointsLedger
	sheets.ExportQueue
	sheets.SettingsStore
	sheets.CoupleStore
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Exporter is nil when no spreadsheet is configured for closed periods.
type BackendResult struct {
	Backend  Backend
	Exporter sheets.PointsExporter
	Cleanup  CleanupFunc
}

// Ping reports readiness of the backend when it supports it.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs the cleanup function if one was set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite, also the ledger of the sheets backend
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSummariesSheet     string
	GooglePointsSheet        string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Memory backend seed files
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// HasSpreadsheet reports whether a spreadsheet is configured.
func (c Config) HasSpreadsheet() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "")
}
