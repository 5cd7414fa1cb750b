package backend

import (
	"context"
	"fmt"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	applog "fairshare/internal/log"
	"fairshare/internal/sheets"
	gsheet "fairshare/internal/sheets/google"
	"fairshare/internal/sheets/memory"
	"fairshare/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// A spreadsheet is optional here; without one closed periods stay in SQLite.
	var exporter sheets.PointsExporter
	if config.HasSpreadsheet() {
		client, err := newSheetsClient(ctx, config)
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets exporter, continuing without export", applog.FieldError, err)
		} else {
			exporter = client
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"export_enabled", exporter != nil)

	return &BackendResult{
		Backend:  repo,
		Exporter: exporter,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := newSheetsClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"ledger_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend:  &sheetsBackend{SQLiteRepository: repo, summaries: client},
		Exporter: client,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Backend:  store,
		Exporter: store,
	}, nil
}

func newSheetsClient(ctx context.Context, config Config) (*gsheet.Client, error) {
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SummariesSheet:     config.GoogleSummariesSheet,
		PointsSheet:        config.GooglePointsSheet,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
	})
}

// summaryStore is the part of the backend the spreadsheet owns.
type summaryStore interface {
	sheets.SummaryReader
	sheets.SummaryWriter
}

// sheetsBackend reads and writes summaries in the spreadsheet and keeps the
// ledger, settings and couples in SQLite.
type sheetsBackend struct {
	*storage.SQLiteRepository
	summaries summaryStore
}

func (b *sheetsBackend) GetSummary(ctx context.Context, partyID string, period core.Period) (fairness.MonthlySummary, error) {
	return b.summaries.GetSummary(ctx, partyID, period)
}

func (b *sheetsBackend) ListSummaries(ctx context.Context, period core.Period) ([]fairness.MonthlySummary, error) {
	return b.summaries.ListSummaries(ctx, period)
}

func (b *sheetsBackend) SaveSummary(ctx context.Context, s fairness.MonthlySummary) error {
	return b.summaries.SaveSummary(ctx, s)
}
