package google

import (
	"context"
	"strings"
	"testing"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	ports "fairshare/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{ServiceAccountJSON: "{}"})
	if err == nil || !strings.Contains(err.Error(), "missing spreadsheet id") {
		t.Fatalf("expected missing spreadsheet id error, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet", ServiceAccountFile: "/non/existent.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file error, got %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Points", 2025, "2025 Points"},
		{"2024 Points", 2025, "2024 Points"},
		{"  Points  ", 2025, "2025 Points"},
		{"", 2025, ""},
		{"12345", 2025, "2025 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestRowCacheServesFreshRows(t *testing.T) {
	c := &Client{cacheValidDuration: time.Minute}
	c.cachedRows = [][]interface{}{
		{"Period", "PartyID", "Name", "Income", "Spent", "Shared", "Personal"},
		{"2025-11", "anna", "Anna", 1000.0, 400.0, 0.0, 400.0},
	}
	c.cacheExpiresAt = time.Now().Add(time.Minute)

	// svc is nil, so any cache miss would fail.
	s, err := c.GetSummary(context.Background(), "anna", "2025-11")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if s.TotalSpent.Cents != 40000 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	list, err := c.ListSummaries(context.Background(), "2025-10")
	if err != nil || len(list) != 0 {
		t.Fatalf("ListSummaries = %v, %v", list, err)
	}

	if _, err := c.GetSummary(context.Background(), "ben", "2025-11"); err == nil {
		t.Fatal("expected not found")
	}
}

func TestRowCacheExpiration(t *testing.T) {
	c := &Client{cacheValidDuration: time.Minute}
	c.cachedRows = [][]interface{}{{"Period", "PartyID", "Income", "Spent", "Shared", "Personal"}}
	c.cacheExpiresAt = time.Now().Add(-time.Second)

	if _, err := c.rows(context.Background()); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expired cache should hit the service, got %v", err)
	}

	c.cacheExpiresAt = time.Now().Add(time.Minute)
	c.invalidateRowCache()
	if c.cachedRows != nil || !c.cacheExpiresAt.IsZero() {
		t.Fatal("invalidateRowCache did not reset state")
	}
}

func TestRows(t *testing.T) {
	goal := core.Cents(12345)
	s := fairness.NewMonthlySummary(fairness.SummaryInput{
		PartyID:     "anna",
		DisplayName: "Anna",
		Period:      "2025-11",
		Income:      core.Cents(300000),
		TotalSpent:  core.Cents(150005),
		SavingsGoal: &goal,
	})
	row := summaryRow(s)
	if len(row) != 8 || row[0] != "2025-11" || row[4] != "1500.05" || row[7] != "123.45" {
		t.Fatalf("summaryRow = %v", row)
	}

	p := ports.PeriodPoints{
		PartyID:       "anna",
		CoupleID:      "home",
		Period:        "2025-11",
		Breakdown:     fairness.PointsBreakdown{SavingsBonus: 50, LowerSpenderBonus: 3, GoalBonus: 10, Total: 63},
		FairnessIndex: 88,
		ClosedAt:      time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC),
	}
	prow := pointsRow(p)
	if len(prow) != 9 || prow[6] != 63 || prow[7] != 88 || prow[8] != "2025-12-01T08:00:00Z" {
		t.Fatalf("pointsRow = %v", prow)
	}
}

func TestCentsToDecimal(t *testing.T) {
	tests := map[int64]string{0: "0.00", 5: "0.05", 1234: "12.34", -250: "-2.50"}
	for in, want := range tests {
		if got := centsToDecimal(in); got != want {
			t.Errorf("centsToDecimal(%d) = %q, want %q", in, got, want)
		}
	}
}
