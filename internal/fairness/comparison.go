package fairness

import (
	"math/big"

	"fairshare/internal/core"
)

// Tolerance bands for the "equal" classification. They are persisted
// alongside stored comparisons, so they are constants rather than settings.
const (
	SavingsTolerancePct    = 1.0
	SpendingToleranceCents = 500
)

const (
	SideSelf    Side = "self"
	SidePartner Side = "partner"
	SideEqual   Side = "equal"
)

// Side is the outcome of a three-way comparison between the two parties.
type Side string

// CoupleComparison is recomputed from two summaries of the same period.
type CoupleComparison struct {
	Period          core.Period
	Self            MonthlySummary
	Partner         MonthlySummary
	SpendingDiff    core.Money // absolute, never negative
	SpendingDiffPct float64    // signed, relative to the larger spender
	WhoSavedMore    Side
	WhoSpentMore    Side
	FairnessIndex   int
}

// Compare builds the couple comparison for self and partner.
func Compare(self, partner MonthlySummary) CoupleComparison {
	diff := self.TotalSpent.Cents - partner.TotalSpent.Cents

	var diffPct float64
	if larger := max(self.TotalSpent.Cents, partner.TotalSpent.Cents); larger > 0 {
		diffPct = float64(diff) / float64(larger) * 100
	}

	abs := diff
	if abs < 0 {
		abs = -abs
	}

	return CoupleComparison{
		Period:          self.Period,
		Self:            self,
		Partner:         partner,
		SpendingDiff:    core.Money{Cents: abs},
		SpendingDiffPct: diffPct,
		WhoSavedMore:    compareSavings(self, partner),
		WhoSpentMore:    classify(diff, SpendingToleranceCents),
		FairnessIndex:   FairnessIndex(self, partner),
	}
}

// compareSavings classifies the savings rate gap on exact fractions, so a
// gap of exactly SavingsTolerancePct stays inside the band.
func compareSavings(self, partner MonthlySummary) Side {
	gap := new(big.Rat).Sub(
		savingsRatio(self.Income, self.TotalSpent),
		savingsRatio(partner.Income, partner.TotalSpent),
	)
	tolerance := new(big.Rat).SetFloat64(SavingsTolerancePct)
	switch {
	case new(big.Rat).Abs(gap).Cmp(tolerance) <= 0:
		return SideEqual
	case gap.Sign() > 0:
		return SideSelf
	default:
		return SidePartner
	}
}

// classify maps a signed self-minus-partner difference to a side.
// The tolerance band is inclusive on both ends.
func classify(diff, tolerance int64) Side {
	switch {
	case diff >= -tolerance && diff <= tolerance:
		return SideEqual
	case diff > 0:
		return SideSelf
	default:
		return SidePartner
	}
}

// PeriodResult bundles everything computed when a period is evaluated for
// a couple: the comparison, both parties' points and the fairness breakdown.
type PeriodResult struct {
	Comparison    CoupleComparison
	Components    FairnessComponents
	SelfPoints    PointsBreakdown
	PartnerPoints PointsBreakdown
}

// Evaluate scores both parties against each other.
func Evaluate(self, partner MonthlySummary) PeriodResult {
	return PeriodResult{
		Comparison:    Compare(self, partner),
		Components:    Components(self, partner),
		SelfPoints:    CalculatePoints(self, partner),
		PartnerPoints: CalculatePoints(partner, self),
	}
}
