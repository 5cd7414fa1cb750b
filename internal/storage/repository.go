package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	"fairshare/internal/sheets"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ sheets.SummaryReader = (*SQLiteRepository)(nil)
	_ sheets.SummaryWriter = (*SQLiteRepository)(nil)
	_ sheets.PointsLedger  = (*SQLiteRepository)(nil)
	_ sheets.ExportQueue   = (*SQLiteRepository)(nil)
	_ sheets.SettingsStore = (*SQLiteRepository)(nil)
	_ sheets.CoupleStore   = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialising through one connection
	// avoids SQLITE_BUSY between the API and the scheduler.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveSummary implements sheets.SummaryWriter
func (r *SQLiteRepository) SaveSummary(ctx context.Context, s fairness.MonthlySummary) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var goal sql.NullInt64
	if s.SavingsGoal != nil {
		goal = sql.NullInt64{Int64: s.SavingsGoal.Cents, Valid: true}
	}
	err := r.queries.UpsertSummary(ctx, MonthlySummary{
		PartyID:            s.PartyID,
		Period:             string(s.Period),
		DisplayName:        s.DisplayName,
		IncomeCents:        s.Income.Cents,
		TotalSpentCents:    s.TotalSpent.Cents,
		SharedSpentCents:   s.SharedSpent.Cents,
		PersonalSpentCents: s.PersonalSpent.Cents,
		SavingsGoalCents:   goal,
		UpdatedAt:          r.now().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	slog.InfoContext(ctx, "Monthly summary saved to SQLite",
		"party_id", s.PartyID,
		"period", s.Period,
		"income_cents", s.Income.Cents,
		"total_spent_cents", s.TotalSpent.Cents)
	return nil
}

// GetSummary implements sheets.SummaryReader
func (r *SQLiteRepository) GetSummary(ctx context.Context, partyID string, period core.Period) (fairness.MonthlySummary, error) {
	row, err := r.queries.GetSummary(ctx, partyID, string(period))
	if errors.Is(err, sql.ErrNoRows) {
		return fairness.MonthlySummary{}, fmt.Errorf("%s %s: %w", partyID, period, sheets.ErrSummaryNotFound)
	}
	if err != nil {
		return fairness.MonthlySummary{}, fmt.Errorf("get summary: %w", err)
	}
	return toSummary(row), nil
}

// ListSummaries implements sheets.SummaryReader
func (r *SQLiteRepository) ListSummaries(ctx context.Context, period core.Period) ([]fairness.MonthlySummary, error) {
	rows, err := r.queries.ListSummariesByPeriod(ctx, string(period))
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	out := make([]fairness.MonthlySummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSummary(row))
	}
	return out, nil
}

func toSummary(row MonthlySummary) fairness.MonthlySummary {
	var goal *core.Money
	if row.SavingsGoalCents.Valid {
		g := core.Cents(row.SavingsGoalCents.Int64)
		goal = &g
	}
	return fairness.NewMonthlySummary(fairness.SummaryInput{
		PartyID:       row.PartyID,
		DisplayName:   row.DisplayName,
		Period:        core.Period(row.Period),
		Income:        core.Cents(row.IncomeCents),
		TotalSpent:    core.Cents(row.TotalSpentCents),
		SharedSpent:   core.Cents(row.SharedSpentCents),
		PersonalSpent: core.Cents(row.PersonalSpentCents),
		SavingsGoal:   goal,
	})
}

// RecordPeriod implements sheets.PointsLedger
func (r *SQLiteRepository) RecordPeriod(ctx context.Context, p sheets.PeriodPoints) error {
	if p.ClosedAt.IsZero() {
		p.ClosedAt = r.now()
	}
	n, err := r.queries.InsertPeriodPoints(ctx, PeriodPoint{
		PartyID:           p.PartyID,
		CoupleID:          p.CoupleID,
		Period:            string(p.Period),
		SavingsBonus:      int64(p.Breakdown.SavingsBonus),
		LowerSpenderBonus: int64(p.Breakdown.LowerSpenderBonus),
		GoalBonus:         int64(p.Breakdown.GoalBonus),
		Total:             int64(p.Breakdown.Total),
		FairnessIndex:     int64(p.FairnessIndex),
		ClosedAt:          p.ClosedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("insert period points: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", p.PartyID, p.Period, sheets.ErrPeriodAlreadyClosed)
	}

	slog.InfoContext(ctx, "Period points recorded",
		"party_id", p.PartyID,
		"period", p.Period,
		"total", p.Breakdown.Total)
	return nil
}

// GetPeriod implements sheets.PointsLedger
func (r *SQLiteRepository) GetPeriod(ctx context.Context, partyID string, period core.Period) (sheets.PeriodPoints, error) {
	row, err := r.queries.GetPeriodPoints(ctx, partyID, string(period))
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.PeriodPoints{}, fmt.Errorf("%s %s: %w", partyID, period, sheets.ErrPeriodNotClosed)
	}
	if err != nil {
		return sheets.PeriodPoints{}, fmt.Errorf("get period points: %w", err)
	}
	return toPeriodPoints(row), nil
}

// HasClosed implements sheets.PointsLedger
func (r *SQLiteRepository) HasClosed(ctx context.Context, partyID string, period core.Period) (bool, error) {
	n, err := r.queries.CountPeriodPoints(ctx, partyID, string(period))
	if err != nil {
		return false, fmt.Errorf("count period points: %w", err)
	}
	return n > 0, nil
}

// CumulativePoints implements sheets.PointsLedger
func (r *SQLiteRepository) CumulativePoints(ctx context.Context, partyID string) (int, error) {
	total, err := r.queries.SumPoints(ctx, partyID)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return int(total), nil
}

// ListPeriods implements sheets.PointsLedger
func (r *SQLiteRepository) ListPeriods(ctx context.Context, partyID string) ([]sheets.PeriodPoints, error) {
	rows, err := r.queries.ListPeriodPointsByParty(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("list period points: %w", err)
	}
	return toPeriodPointsList(rows), nil
}

// PendingExports implements sheets.ExportQueue
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]sheets.PeriodPoints, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.ListPendingExports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	return toPeriodPointsList(rows), nil
}

// MarkExported implements sheets.ExportQueue
func (r *SQLiteRepository) MarkExported(ctx context.Context, partyID string, period core.Period, at time.Time) error {
	n, err := r.queries.MarkExported(ctx, at.UTC().Format(timeLayout), partyID, string(period))
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", partyID, period, sheets.ErrPeriodNotClosed)
	}
	return nil
}

func toPeriodPointsList(rows []PeriodPoint) []sheets.PeriodPoints {
	out := make([]sheets.PeriodPoints, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPeriodPoints(row))
	}
	return out
}

func toPeriodPoints(row PeriodPoint) sheets.PeriodPoints {
	p := sheets.PeriodPoints{
		PartyID:  row.PartyID,
		CoupleID: row.CoupleID,
		Period:   core.Period(row.Period),
		Breakdown: fairness.PointsBreakdown{
			SavingsBonus:      int(row.SavingsBonus),
			LowerSpenderBonus: int(row.LowerSpenderBonus),
			GoalBonus:         int(row.GoalBonus),
			Total:             int(row.Total),
		},
		FairnessIndex: int(row.FairnessIndex),
		ClosedAt:      parseTime(row.ClosedAt),
	}
	if row.ExportedAt.Valid {
		t := parseTime(row.ExportedAt.String)
		p.ExportedAt = &t
	}
	return p
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetSettings implements sheets.SettingsStore
func (r *SQLiteRepository) GetSettings(ctx context.Context, coupleID string) (core.Settings, error) {
	row, err := r.queries.GetSettings(ctx, coupleID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(coupleID), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return core.Settings{
		CoupleID:      row.CoupleID,
		RewardPolicy:  core.RewardPolicy(row.RewardPolicy),
		CentsPerPoint: row.CentsPerPoint,
	}, nil
}

// SaveSettings implements sheets.SettingsStore
func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertSettings(ctx, Setting{
		CoupleID:      s.CoupleID,
		RewardPolicy:  string(s.RewardPolicy),
		CentsPerPoint: s.CentsPerPoint,
		UpdatedAt:     r.now().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// SaveCouple implements sheets.CoupleStore
func (r *SQLiteRepository) SaveCouple(ctx context.Context, c core.Couple) error {
	if err := c.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertCouple(ctx, Couple{
		ID:        c.ID,
		SelfID:    c.SelfID,
		PartnerID: c.PartnerID,
		CreatedAt: r.now().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("upsert couple: %w", err)
	}
	return nil
}

// GetCouple implements sheets.CoupleStore
func (r *SQLiteRepository) GetCouple(ctx context.Context, id string) (core.Couple, error) {
	row, err := r.queries.GetCouple(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Couple{}, fmt.Errorf("%s: %w", id, sheets.ErrCoupleNotFound)
	}
	if err != nil {
		return core.Couple{}, fmt.Errorf("get couple: %w", err)
	}
	return core.Couple{ID: row.ID, SelfID: row.SelfID, PartnerID: row.PartnerID}, nil
}

// ListCouples implements sheets.CoupleStore
func (r *SQLiteRepository) ListCouples(ctx context.Context) ([]core.Couple, error) {
	rows, err := r.queries.ListCouples(ctx)
	if err != nil {
		return nil, fmt.Errorf("list couples: %w", err)
	}
	out := make([]core.Couple, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Couple{ID: row.ID, SelfID: row.SelfID, PartnerID: row.PartnerID})
	}
	return out, nil
}
