package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"fairshare/internal/config"
	"fairshare/internal/core"
	"fairshare/internal/fairness"
	"fairshare/internal/sheets"
	"fairshare/internal/sheets/memory"
	"fairshare/internal/storage"
)

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		bt   BackendType
		want bool
	}{
		{SQLiteBackend, true},
		{SheetsBackend, true},
		{MemoryBackend, true},
		{"postgres", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.want {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.want)
		}
	}
	if got := GetBackendTypeStrings(); len(got) != 3 {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	_, err := FromAppConfig(&config.Config{DataBackend: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "[sqlite sheets memory]") {
		t.Errorf("expected invalid backend error listing valid types, got %v", err)
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:          "sheets",
		SQLiteDBPath:         "/tmp/fs.db",
		GoogleSpreadsheetID:  "sheet",
		GoogleSummariesSheet: "Summaries",
		GooglePointsSheet:    "Points",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSpreadsheetID != "sheet" || cfg.DataDirectory != "data" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "fs.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without ledger path", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleServiceAccountJSON: "{}"}, true},
		{"sheets without credentials", Config{Type: SheetsBackend, SQLiteDBPath: "fs.db", GoogleSpreadsheetID: "x"}, true},
		{"sheets", Config{Type: SheetsBackend, SQLiteDBPath: "fs.db", GoogleSpreadsheetID: "x", GoogleServiceAccountJSON: "{}"}, false},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if _, ok := res.Backend.(*memory.Store); !ok {
		t.Errorf("expected *memory.Store, got %T", res.Backend)
	}
	if res.Exporter == nil {
		t.Error("memory backend should export to itself")
	}
	if err := res.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFactory_CreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if _, ok := res.Backend.(*storage.SQLiteRepository); !ok {
		t.Errorf("expected *storage.SQLiteRepository, got %T", res.Backend)
	}
	if res.Exporter != nil {
		t.Error("no spreadsheet configured, exporter should be nil")
	}
	if err := res.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSheetsBackend_RoutesSummariesToSpreadsheet(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	sheet := memory.New()
	var b Backend = &sheetsBackend{SQLiteRepository: repo, summaries: sheet}
	ctx := context.Background()

	sum := fairness.NewMonthlySummary(fairness.SummaryInput{
		PartyID: "me", Period: "2024-03", Income: core.Cents(1000), TotalSpent: core.Cents(400),
	})
	if err := b.SaveSummary(ctx, sum); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	if _, err := sheet.GetSummary(ctx, "me", "2024-03"); err != nil {
		t.Errorf("summary should be in the spreadsheet store: %v", err)
	}
	if _, err := repo.GetSummary(ctx, "me", "2024-03"); !errors.Is(err, sheets.ErrSummaryNotFound) {
		t.Errorf("summary should not be in SQLite, got err = %v", err)
	}

	if err := b.RecordPeriod(ctx, sheets.PeriodPoints{PartyID: "me", Period: "2024-03"}); err != nil {
		t.Fatalf("RecordPeriod() error = %v", err)
	}
	if ok, _ := repo.HasClosed(ctx, "me", "2024-03"); !ok {
		t.Error("ledger rows should land in SQLite")
	}
}
