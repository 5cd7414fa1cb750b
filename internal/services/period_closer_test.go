package services

import (
	"context"
	"testing"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	"fairshare/internal/sheets"
	"fairshare/internal/sheets/memory"
)

func newCloserFixture(t *testing.T, now time.Time) (*FairShareService, *memory.Store) {
	t.Helper()
	store := memory.New(
		core.Couple{ID: "home", SelfID: "me", PartnerID: "partner"},
		core.Couple{ID: "flat", SelfID: "ana", PartnerID: "bea"},
	)
	ctx := context.Background()
	seed := []fairness.MonthlySummary{
		summary("me", "2024-02", 300000, 180000, 60000),
		summary("partner", "2024-02", 250000, 200000, 60000),
		summary("me", "2024-03", 300000, 150000, 60000),
		summary("partner", "2024-03", 250000, 240000, 60000),
		summary("ana", "2024-03", 200000, 100000, 40000),
		summary("bea", "2024-03", 200000, 120000, 40000),
	}
	for _, s := range seed {
		if err := store.SaveSummary(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := NewFairShareService(Deps{
		Summaries: store,
		Writer:    store,
		Ledger:    store,
		Settings:  store,
		Couples:   store,
		Now:       func() time.Time { return now },
	})
	return svc, store
}

func TestPeriodCloser_ProcessDuePeriods(t *testing.T) {
	now := time.Date(2024, 4, 5, 6, 0, 0, 0, time.UTC)
	svc, store := newCloserFixture(t, now)
	closer := NewPeriodCloser(svc, MonthEndChecker{}, 3, nil)
	ctx := context.Background()

	closed, err := closer.ProcessDuePeriods(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDuePeriods() error = %v", err)
	}
	// home: 2024-02 and 2024-03; flat: 2024-03. 2024-01 has no summaries.
	if closed != 3 {
		t.Errorf("closed = %d, want 3", closed)
	}

	for _, party := range []string{"me", "partner"} {
		hist, _ := store.ListPeriods(ctx, party)
		if len(hist) != 2 {
			t.Errorf("%s history = %d entries, want 2", party, len(hist))
		}
	}

	again, err := closer.ProcessDuePeriods(ctx, now)
	if err != nil {
		t.Fatalf("second ProcessDuePeriods() error = %v", err)
	}
	if again != 0 {
		t.Errorf("second run closed %d periods, want 0", again)
	}
}

func TestPeriodCloser_RespectsGrace(t *testing.T) {
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	svc, _ := newCloserFixture(t, now)
	closer := NewPeriodCloser(svc, GraceChecker{Grace: 72 * time.Hour}, 1, nil)

	closed, err := closer.ProcessDuePeriods(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDuePeriods() error = %v", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d inside grace window, want 0", closed)
	}
}

func TestPeriodCloser_CompletesPartialClose(t *testing.T) {
	now := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	svc, store := newCloserFixture(t, now)
	ctx := context.Background()

	// simulate a crash after only one party was recorded
	if _, err := svc.ClosePeriod(ctx, CloseRequest{CoupleID: "flat", Period: "2024-03"}); err != nil {
		t.Fatalf("ClosePeriod() error = %v", err)
	}
	if err := store.RecordPeriod(ctx, periodPointsFor("me", "2024-03")); err != nil {
		t.Fatalf("RecordPeriod() error = %v", err)
	}

	closer := NewPeriodCloser(svc, nil, 1, nil)
	closed, err := closer.ProcessDuePeriods(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDuePeriods() error = %v", err)
	}
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}
	if ok, _ := store.HasClosed(ctx, "partner", "2024-03"); !ok {
		t.Error("partner should have been recorded")
	}
}

func TestPeriodCloser_Candidates(t *testing.T) {
	closer := NewPeriodCloser(nil, nil, 3, nil)
	got := closer.candidates(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	want := []core.Period{"2023-11", "2023-12", "2024-01"}
	if len(got) != len(want) {
		t.Fatalf("candidates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidates()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := closer.ProcessDuePeriods(context.Background(), time.Now()); err == nil {
		t.Error("expected error without a service")
	}
}

func periodPointsFor(party string, period core.Period) sheets.PeriodPoints {
	return sheets.PeriodPoints{
		PartyID:  party,
		CoupleID: "home",
		Period:   period,
		ClosedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}
