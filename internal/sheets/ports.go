package sheets

import (
	"context"
	"errors"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
)

var (
	ErrSummaryNotFound     = errors.New("monthly summary not found")
	ErrPeriodAlreadyClosed = errors.New("period already closed")
	ErrPeriodNotClosed     = errors.New("period not closed")
	ErrCoupleNotFound      = errors.New("couple not found")
)

// PeriodPoints is one ledger row: the points a party earned for a closed period.
type PeriodPoints struct {
	PartyID       string
	CoupleID      string
	Period        core.Period
	Breakdown     fairness.PointsBreakdown
	FairnessIndex int
	ClosedAt      time.Time
	ExportedAt    *time.Time
}

// Ports for outbound adapters.
type (
	SummaryReader interface {
		// GetSummary returns ErrSummaryNotFound when the party has no summary for the period.
		GetSummary(ctx context.Context, partyID string, period core.Period) (fairness.MonthlySummary, error)
		ListSummaries(ctx context.Context, period core.Period) ([]fairness.MonthlySummary, error)
	}

	SummaryWriter interface {
		// SaveSummary inserts or replaces the summary for (party, period).
		SaveSummary(ctx context.Context, s fairness.MonthlySummary) error
	}

	// PointsLedger owns the cumulative points counter. Each (party, period)
	// can be recorded once; a second attempt returns ErrPeriodAlreadyClosed.
	PointsLedger interface {
		RecordPeriod(ctx context.Context, p PeriodPoints) error
		GetPeriod(ctx context.Context, partyID string, period core.Period) (PeriodPoints, error)
		HasClosed(ctx context.Context, partyID string, period core.Period) (bool, error)
		CumulativePoints(ctx context.Context, partyID string) (int, error)
		ListPeriods(ctx context.Context, partyID string) ([]PeriodPoints, error)
	}

	// ExportQueue tracks which ledger rows still need to reach the spreadsheet.
	ExportQueue interface {
		PendingExports(ctx context.Context, limit int) ([]PeriodPoints, error)
		MarkExported(ctx context.Context, partyID string, period core.Period, at time.Time) error
	}

	// PointsExporter publishes a closed period somewhere humans read it.
	PointsExporter interface {
		ExportPoints(ctx context.Context, p PeriodPoints) (rowRef string, err error)
	}

	SettingsStore interface {
		// GetSettings falls back to core.DefaultSettings when nothing is stored.
		GetSettings(ctx context.Context, coupleID string) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	CoupleStore interface {
		SaveCouple(ctx context.Context, c core.Couple) error
		GetCouple(ctx context.Context, id string) (core.Couple, error)
		ListCouples(ctx context.Context) ([]core.Couple, error)
	}
)

// Key identifies a (party, period) pair in adapters that index by string.
func Key(partyID string, period core.Period) string {
	return partyID + "|" + string(period)
}
