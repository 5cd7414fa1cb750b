// Package services orchestrates the scoring engine with storage, caching
// and messaging.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fairshare/internal/amqp"
	"fairshare/internal/cache"
	"fairshare/internal/core"
	"fairshare/internal/fairness"
	applog "fairshare/internal/log"
	"fairshare/internal/sheets"
)

var (
	ErrSummaryNotFound     = sheets.ErrSummaryNotFound
	ErrPeriodAlreadyClosed = sheets.ErrPeriodAlreadyClosed
	ErrSameParty           = core.ErrSameParty
	ErrPeriodMismatch      = errors.New("summaries belong to different periods")
	ErrPeriodNotEnded      = errors.New("period has not ended yet")
)

// Publisher announces closed periods. *amqp.Client satisfies it.
type Publisher interface {
	PublishPeriodClosed(ctx context.Context, msg *amqp.PeriodClosedMessage) error
}

// Deps wires the service. Summaries, Writer, Ledger, Settings and Couples
// are required; Publisher and Cache may be nil.
type Deps struct {
	Summaries sheets.SummaryReader
	Writer    sheets.SummaryWriter
	Ledger    sheets.PointsLedger
	Settings  sheets.SettingsStore
	Couples   sheets.CoupleStore
	Publisher Publisher
	Cache     cache.Cache[fairness.PeriodResult]
	Catalog   fairness.Catalog
	Logger    *applog.Logger
	Now       func() time.Time
}

// FairShareService scores couples and keeps the points ledger.
type FairShareService struct {
	summaries sheets.SummaryReader
	writer    sheets.SummaryWriter
	ledger    sheets.PointsLedger
	settings  sheets.SettingsStore
	couples   sheets.CoupleStore
	publisher Publisher
	cache     cache.Cache[fairness.PeriodResult]
	catalog   fairness.Catalog
	logger    *applog.Logger
	events    *applog.StructuredLogger
	now       func() time.Time
}

func NewFairShareService(d Deps) *FairShareService {
	logger := d.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentFairness)
	catalog := d.Catalog
	if catalog.Len() == 0 {
		catalog = fairness.DefaultCatalog()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &FairShareService{
		summaries: d.Summaries,
		writer:    d.Writer,
		ledger:    d.Ledger,
		settings:  d.Settings,
		couples:   d.Couples,
		publisher: d.Publisher,
		cache:     d.Cache,
		catalog:   catalog,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		now:       now,
	}
}

// CloseRequest names a period to close. Either CoupleID or both party ids
// must be given; party ids win when both are present.
type CloseRequest struct {
	CoupleID  string
	Period    core.Period
	SelfID    string
	PartnerID string
}

// CloseResult is what closing a period recorded.
type CloseResult struct {
	Result            fairness.PeriodResult
	SelfCumulative    int
	PartnerCumulative int
	Published         bool
}

func periodKeyPrefix(period core.Period) string {
	return "cmp|" + string(period) + "|"
}

// cacheKey length-prefixes selfID since party ids may contain the separator.
func cacheKey(period core.Period, selfID, partnerID string) string {
	return fmt.Sprintf("%s%d:%s|%s", periodKeyPrefix(period), len(selfID), selfID, partnerID)
}

func validatePair(period core.Period, selfID, partnerID string) error {
	if err := period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(selfID) == "" || strings.TrimSpace(partnerID) == "" {
		return core.ErrEmptyParty
	}
	if selfID == partnerID {
		return ErrSameParty
	}
	return nil
}

// Evaluate loads both summaries concurrently and scores the pair.
func (s *FairShareService) Evaluate(ctx context.Context, period core.Period, selfID, partnerID string) (fairness.PeriodResult, error) {
	if err := validatePair(period, selfID, partnerID); err != nil {
		return fairness.PeriodResult{}, err
	}
	if s.cache != nil {
		if res, ok := s.cache.Get(cacheKey(period, selfID, partnerID)); ok {
			return res, nil
		}
	}
	return s.evaluate(ctx, period, selfID, partnerID)
}

// evaluate always reads the store and refreshes the cached result.
func (s *FairShareService) evaluate(ctx context.Context, period core.Period, selfID, partnerID string) (fairness.PeriodResult, error) {

	var self, partner fairness.MonthlySummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		self, err = s.summaries.GetSummary(gctx, selfID, period)
		return err
	})
	g.Go(func() error {
		var err error
		partner, err = s.summaries.GetSummary(gctx, partnerID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return fairness.PeriodResult{}, fmt.Errorf("load summaries: %w", err)
	}
	if self.Period != partner.Period {
		return fairness.PeriodResult{}, ErrPeriodMismatch
	}

	res := fairness.Evaluate(self, partner)
	if s.cache != nil {
		s.cache.Set(cacheKey(period, selfID, partnerID), res)
	}
	s.events.LogComparison(ctx, string(period), selfID, partnerID, res.SelfPoints.Total, res.Comparison.FairnessIndex)
	return res, nil
}

// Points returns the self party's breakdown for the period.
func (s *FairShareService) Points(ctx context.Context, period core.Period, selfID, partnerID string) (fairness.PointsBreakdown, error) {
	res, err := s.Evaluate(ctx, period, selfID, partnerID)
	if err != nil {
		return fairness.PointsBreakdown{}, err
	}
	return res.SelfPoints, nil
}

// SaveSummary validates and stores a summary, dropping cached results for its period.
func (s *FairShareService) SaveSummary(ctx context.Context, sum fairness.MonthlySummary) error {
	if err := sum.Validate(); err != nil {
		return err
	}
	if err := s.writer.SaveSummary(ctx, sum); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if s.cache != nil {
		if n := s.cache.DeletePrefix(periodKeyPrefix(sum.Period)); n > 0 {
			s.logger.DebugContext(ctx, "Invalidated cached comparisons",
				applog.FieldPeriod, sum.Period,
				applog.FieldCount, n)
		}
	}
	return nil
}

func (s *FairShareService) resolveCouple(ctx context.Context, req CloseRequest) (CloseRequest, error) {
	if req.SelfID != "" || req.PartnerID != "" || req.CoupleID == "" {
		return req, nil
	}
	c, err := s.couples.GetCouple(ctx, req.CoupleID)
	if err != nil {
		return req, err
	}
	req.SelfID = c.SelfID
	req.PartnerID = c.PartnerID
	return req, nil
}

// ClosePeriod scores an ended period and records points for both parties.
// A party already recorded for the period keeps its first entry; when both
// are recorded the call fails with ErrPeriodAlreadyClosed.
func (s *FairShareService) ClosePeriod(ctx context.Context, req CloseRequest) (CloseResult, error) {
	req, err := s.resolveCouple(ctx, req)
	if err != nil {
		return CloseResult{}, err
	}
	if err := validatePair(req.Period, req.SelfID, req.PartnerID); err != nil {
		return CloseResult{}, err
	}
	if s.now().Before(req.Period.Next().Start()) {
		return CloseResult{}, fmt.Errorf("%s: %w", req.Period, ErrPeriodNotEnded)
	}

	// Summaries may change outside SaveSummary, so the ledger is never fed
	// from the cache.
	res, err := s.evaluate(ctx, req.Period, req.SelfID, req.PartnerID)
	if err != nil {
		return CloseResult{}, err
	}

	closedAt := s.now().UTC()
	entries := []sheets.PeriodPoints{
		{PartyID: req.SelfID, Breakdown: res.SelfPoints},
		{PartyID: req.PartnerID, Breakdown: res.PartnerPoints},
	}
	recorded := 0
	for _, e := range entries {
		e.CoupleID = req.CoupleID
		e.Period = req.Period
		e.FairnessIndex = res.Comparison.FairnessIndex
		e.ClosedAt = closedAt
		err := s.ledger.RecordPeriod(ctx, e)
		if errors.Is(err, ErrPeriodAlreadyClosed) {
			continue
		}
		if err != nil {
			return CloseResult{}, fmt.Errorf("record period for %s: %w", e.PartyID, err)
		}
		recorded++
	}
	if recorded == 0 {
		return CloseResult{}, fmt.Errorf("%s: %w", req.Period, ErrPeriodAlreadyClosed)
	}

	out := CloseResult{Result: res}
	if out.SelfCumulative, err = s.cumulative(ctx, req.SelfID); err != nil {
		return CloseResult{}, err
	}
	if out.PartnerCumulative, err = s.cumulative(ctx, req.PartnerID); err != nil {
		return CloseResult{}, err
	}

	s.events.LogPeriodClosed(ctx, string(req.Period), req.SelfID, res.SelfPoints.Total, out.SelfCumulative, s.tierName(out.SelfCumulative))
	s.events.LogPeriodClosed(ctx, string(req.Period), req.PartnerID, res.PartnerPoints.Total, out.PartnerCumulative, s.tierName(out.PartnerCumulative))

	out.Published = s.publish(ctx, req)
	return out, nil
}

// publish is best effort: the ledger is the source of truth and the worker
// also scans for unexported rows.
func (s *FairShareService) publish(ctx context.Context, req CloseRequest) bool {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping period closed message")
		return false
	}
	msg := amqp.NewPeriodClosedMessage(req.CoupleID, req.Period, req.SelfID, req.PartnerID)
	if err := s.publisher.PublishPeriodClosed(ctx, msg); err != nil {
		s.events.LogError(ctx, "Failed to publish period closed message", err,
			applog.ComponentAMQP, applog.OpClosePeriod,
			applog.NewFields().WithCouple(string(req.Period), req.SelfID, req.PartnerID))
		return false
	}
	return true
}

func (s *FairShareService) cumulative(ctx context.Context, partyID string) (int, error) {
	total, err := s.ledger.CumulativePoints(ctx, partyID)
	if err != nil {
		return 0, fmt.Errorf("cumulative points for %s: %w", partyID, err)
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

func (s *FairShareService) tierName(points int) string {
	if tier, ok := s.catalog.CurrentTier(points); ok {
		return tier.ID
	}
	return ""
}

// Standing reports a party's cumulative points, tier and reward value.
// The couple's settings supply the cents-per-point rate.
func (s *FairShareService) Standing(ctx context.Context, partyID, coupleID string) (fairness.Standing, error) {
	if strings.TrimSpace(partyID) == "" {
		return fairness.Standing{}, core.ErrEmptyParty
	}
	points, err := s.cumulative(ctx, partyID)
	if err != nil {
		return fairness.Standing{}, err
	}
	settings := core.DefaultSettings(coupleID)
	if coupleID != "" {
		if settings, err = s.settings.GetSettings(ctx, coupleID); err != nil {
			return fairness.Standing{}, fmt.Errorf("get settings: %w", err)
		}
	}
	return s.catalog.Standing(points, settings.CentsPerPoint), nil
}

// History lists a party's closed periods, oldest first.
func (s *FairShareService) History(ctx context.Context, partyID string) ([]sheets.PeriodPoints, error) {
	if strings.TrimSpace(partyID) == "" {
		return nil, core.ErrEmptyParty
	}
	return s.ledger.ListPeriods(ctx, partyID)
}

func (s *FairShareService) Tiers() []fairness.RewardTier {
	return s.catalog.Tiers()
}

func (s *FairShareService) GetSettings(ctx context.Context, coupleID string) (core.Settings, error) {
	if strings.TrimSpace(coupleID) == "" {
		return core.Settings{}, core.ErrEmptyCouple
	}
	return s.settings.GetSettings(ctx, coupleID)
}

func (s *FairShareService) UpdateSettings(ctx context.Context, st core.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.settings.SaveSettings(ctx, st); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.logger.InfoContext(ctx, "Settings updated",
		applog.FieldCoupleID, st.CoupleID,
		applog.FieldOperation, applog.OpSettings)
	return nil
}

// SaveCouple registers a couple for the period closer.
func (s *FairShareService) SaveCouple(ctx context.Context, c core.Couple) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.couples.SaveCouple(ctx, c)
}

func (s *FairShareService) ListCouples(ctx context.Context) ([]core.Couple, error) {
	return s.couples.ListCouples(ctx)
}

// IsClosed reports whether both parties already have ledger entries for period.
func (s *FairShareService) IsClosed(ctx context.Context, period core.Period, selfID, partnerID string) (bool, error) {
	for _, id := range []string{selfID, partnerID} {
		closed, err := s.ledger.HasClosed(ctx, id, period)
		if err != nil {
			return false, fmt.Errorf("check closed for %s: %w", id, err)
		}
		if !closed {
			return false, nil
		}
	}
	return true, nil
}
