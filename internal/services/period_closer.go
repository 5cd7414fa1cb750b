package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fairshare/internal/core"
	applog "fairshare/internal/log"
)

// DefaultLookback is how many ended periods the closer revisits per couple.
const DefaultLookback = 3

// PeriodCloser closes ended periods for every registered couple.
type PeriodCloser struct {
	service  *FairShareService
	checker  CloseChecker
	lookback int
	logger   *applog.Logger
}

func NewPeriodCloser(service *FairShareService, checker CloseChecker, lookback int, logger *applog.Logger) *PeriodCloser {
	if checker == nil {
		checker = MonthEndChecker{}
	}
	if lookback < 1 {
		lookback = DefaultLookback
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &PeriodCloser{
		service:  service,
		checker:  checker,
		lookback: lookback,
		logger:   logger.WithComponent(applog.ComponentScheduler),
	}
}

// ProcessDuePeriods closes every due, unclosed period within the lookback
// window and returns how many periods it closed. Periods with missing
// summaries are skipped and retried on the next run.
func (p *PeriodCloser) ProcessDuePeriods(ctx context.Context, now time.Time) (int, error) {
	if p.service == nil {
		return 0, fmt.Errorf("period closer not properly initialized")
	}

	couples, err := p.service.ListCouples(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list couples: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing due periods",
		"couples", len(couples),
		"processing_date", now.Format("2006-01-02"))

	closed := 0
	for _, c := range couples {
		for _, period := range p.candidates(now) {
			if ctx.Err() != nil {
				return closed, ctx.Err()
			}
			if !p.checker.IsDue(period, now) {
				continue
			}

			done, err := p.service.IsClosed(ctx, period, c.SelfID, c.PartnerID)
			if err != nil {
				p.logger.ErrorContext(ctx, "Failed to check period state",
					applog.FieldCoupleID, c.ID,
					applog.FieldPeriod, period,
					applog.FieldError, err)
				continue
			}
			if done {
				continue
			}

			_, err = p.service.ClosePeriod(ctx, CloseRequest{
				CoupleID:  c.ID,
				Period:    period,
				SelfID:    c.SelfID,
				PartnerID: c.PartnerID,
			})
			switch {
			case errors.Is(err, ErrSummaryNotFound):
				p.logger.DebugContext(ctx, "Summaries missing, period left open",
					applog.FieldCoupleID, c.ID,
					applog.FieldPeriod, period)
				continue
			case err != nil:
				p.logger.ErrorContext(ctx, "Failed to close period",
					applog.FieldCoupleID, c.ID,
					applog.FieldPeriod, period,
					applog.FieldError, err)
				continue
			}
			closed++
		}
	}

	p.logger.InfoContext(ctx, "Period processing complete",
		"closed", closed,
		"couples", len(couples))

	return closed, nil
}

// candidates lists the lookback periods before now's period, oldest first.
func (p *PeriodCloser) candidates(now time.Time) []core.Period {
	out := make([]core.Period, p.lookback)
	period := core.PeriodOf(now.UTC())
	for i := p.lookback - 1; i >= 0; i-- {
		period = period.Prev()
		out[i] = period
	}
	return out
}
