package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	"fairshare/internal/sheets"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.Close()

	// Re-running is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}
	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("version = %d dirty = %v, want 2 clean", version, dirty)
	}
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	goal := core.Cents(50000)
	in := fairness.SummaryInput{
		PartyID:       "anna",
		DisplayName:   "Anna",
		Period:        "2025-11",
		Income:        core.Cents(300000),
		TotalSpent:    core.Cents(150000),
		SharedSpent:   core.Cents(60000),
		PersonalSpent: core.Cents(90000),
		SavingsGoal:   &goal,
	}
	if err := repo.SaveSummary(ctx, fairness.NewMonthlySummary(in)); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	got, err := repo.GetSummary(ctx, "anna", "2025-11")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got.SavingsRate != 50 || got.Savings.Cents != 150000 {
		t.Fatalf("derived fields not rebuilt: %+v", got)
	}
	if got.SavingsGoal == nil || got.SavingsGoal.Cents != 50000 {
		t.Fatalf("goal: %v", got.SavingsGoal)
	}

	// Upsert without goal clears it.
	in.SavingsGoal = nil
	in.TotalSpent = core.Cents(100000)
	if err := repo.SaveSummary(ctx, fairness.NewMonthlySummary(in)); err != nil {
		t.Fatalf("SaveSummary upsert: %v", err)
	}
	got, _ = repo.GetSummary(ctx, "anna", "2025-11")
	if got.SavingsGoal != nil || got.TotalSpent.Cents != 100000 {
		t.Fatalf("upsert not applied: %+v", got)
	}

	if _, err := repo.GetSummary(ctx, "anna", "2025-10"); !errors.Is(err, sheets.ErrSummaryNotFound) {
		t.Fatalf("expected ErrSummaryNotFound, got %v", err)
	}

	in.PartyID = "ben"
	if err := repo.SaveSummary(ctx, fairness.NewMonthlySummary(in)); err != nil {
		t.Fatalf("SaveSummary ben: %v", err)
	}
	list, err := repo.ListSummaries(ctx, "2025-11")
	if err != nil || len(list) != 2 || list[0].PartyID != "anna" {
		t.Fatalf("ListSummaries = %+v, %v", list, err)
	}

	bad := fairness.NewMonthlySummary(fairness.SummaryInput{PartyID: "x", Period: "2025-11", Income: core.Cents(-1)})
	if err := repo.SaveSummary(ctx, bad); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	closedAt := time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC)
	first := sheets.PeriodPoints{
		PartyID:       "anna",
		CoupleID:      "home",
		Period:        "2025-11",
		Breakdown:     fairness.PointsBreakdown{SavingsBonus: 50, LowerSpenderBonus: 3, GoalBonus: 10, Total: 63},
		FairnessIndex: 82,
		ClosedAt:      closedAt,
	}
	if err := repo.RecordPeriod(ctx, first); err != nil {
		t.Fatalf("RecordPeriod: %v", err)
	}
	if err := repo.RecordPeriod(ctx, sheets.PeriodPoints{PartyID: "anna", Period: "2025-10", Breakdown: fairness.PointsBreakdown{Total: 12}}); err != nil {
		t.Fatalf("RecordPeriod: %v", err)
	}

	dup := first
	dup.Breakdown.Total = 1000
	if err := repo.RecordPeriod(ctx, dup); !errors.Is(err, sheets.ErrPeriodAlreadyClosed) {
		t.Fatalf("expected ErrPeriodAlreadyClosed, got %v", err)
	}

	total, err := repo.CumulativePoints(ctx, "anna")
	if err != nil || total != 75 {
		t.Fatalf("CumulativePoints = %d, %v; want 75", total, err)
	}
	if total, _ := repo.CumulativePoints(ctx, "nobody"); total != 0 {
		t.Fatalf("CumulativePoints(nobody) = %d", total)
	}

	got, err := repo.GetPeriod(ctx, "anna", "2025-11")
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if got.Breakdown != first.Breakdown || got.FairnessIndex != 82 || !got.ClosedAt.Equal(closedAt) || got.ExportedAt != nil {
		t.Fatalf("GetPeriod = %+v", got)
	}

	closed, _ := repo.HasClosed(ctx, "anna", "2025-11")
	open, _ := repo.HasClosed(ctx, "anna", "2025-12")
	if !closed || open {
		t.Fatalf("HasClosed = %v / %v", closed, open)
	}

	periods, _ := repo.ListPeriods(ctx, "anna")
	if len(periods) != 2 || periods[0].Period != "2025-10" {
		t.Fatalf("ListPeriods = %+v", periods)
	}
}

func TestExportQueue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, p := range []sheets.PeriodPoints{
		{PartyID: "ben", Period: "2025-11"},
		{PartyID: "anna", Period: "2025-11"},
		{PartyID: "anna", Period: "2025-10"},
	} {
		if err := repo.RecordPeriod(ctx, p); err != nil {
			t.Fatalf("RecordPeriod: %v", err)
		}
	}

	pending, err := repo.PendingExports(ctx, 2)
	if err != nil {
		t.Fatalf("PendingExports: %v", err)
	}
	if len(pending) != 2 || pending[0].Period != "2025-10" || pending[1].PartyID != "anna" {
		t.Fatalf("PendingExports = %+v", pending)
	}

	at := time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC)
	if err := repo.MarkExported(ctx, "anna", "2025-10", at); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	if err := repo.MarkExported(ctx, "carl", "2025-10", at); !errors.Is(err, sheets.ErrPeriodNotClosed) {
		t.Fatalf("expected ErrPeriodNotClosed, got %v", err)
	}

	got, _ := repo.GetPeriod(ctx, "anna", "2025-10")
	if got.ExportedAt == nil || !got.ExportedAt.Equal(at) {
		t.Fatalf("ExportedAt = %v", got.ExportedAt)
	}
	pending, _ = repo.PendingExports(ctx, 10)
	if len(pending) != 2 {
		t.Fatalf("PendingExports after mark = %d rows", len(pending))
	}
}

func TestSettingsAndCouples(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.GetSettings(ctx, "home")
	if err != nil || s != core.DefaultSettings("home") {
		t.Fatalf("GetSettings default = %+v, %v", s, err)
	}
	want := core.Settings{CoupleID: "home", RewardPolicy: core.PolicyWinnerPicks, CentsPerPoint: 5}
	if err := repo.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if s, _ := repo.GetSettings(ctx, "home"); s != want {
		t.Fatalf("GetSettings = %+v", s)
	}
	if err := repo.SaveSettings(ctx, core.Settings{CoupleID: "home", RewardPolicy: core.PolicyDonate, CentsPerPoint: -1}); !errors.Is(err, core.ErrNegativeRate) {
		t.Fatalf("expected ErrNegativeRate, got %v", err)
	}

	if err := repo.SaveCouple(ctx, core.Couple{ID: "home", SelfID: "anna", PartnerID: "ben"}); err != nil {
		t.Fatalf("SaveCouple: %v", err)
	}
	if err := repo.SaveCouple(ctx, core.Couple{ID: "away", SelfID: "cid", PartnerID: "dan"}); err != nil {
		t.Fatalf("SaveCouple: %v", err)
	}
	if err := repo.SaveCouple(ctx, core.Couple{ID: "bad", SelfID: "x", PartnerID: "x"}); !errors.Is(err, core.ErrSameParty) {
		t.Fatalf("expected ErrSameParty, got %v", err)
	}

	c, err := repo.GetCouple(ctx, "home")
	if err != nil || c.PartnerID != "ben" {
		t.Fatalf("GetCouple = %+v, %v", c, err)
	}
	if _, err := repo.GetCouple(ctx, "nope"); !errors.Is(err, sheets.ErrCoupleNotFound) {
		t.Fatalf("expected ErrCoupleNotFound, got %v", err)
	}
	couples, _ := repo.ListCouples(ctx)
	if len(couples) != 2 || couples[0].ID != "away" {
		t.Fatalf("ListCouples = %+v", couples)
	}

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
