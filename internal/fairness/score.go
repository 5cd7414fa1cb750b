package fairness

import (
	"math"
	"math/big"

	"fairshare/internal/core"
)

const (
	// GoalBonusPoints is awarded when savings reach the savings goal.
	GoalBonusPoints = 10

	// CentsPerSpendPoint is the spending gap worth one lower-spender point.
	CentsPerSpendPoint = 1000

	sharedWeight       = 0.3
	savingsWeight      = 0.4
	contributionWeight = 0.3
)

// PointsBreakdown is one party's score for one period.
type PointsBreakdown struct {
	SavingsBonus      int
	LowerSpenderBonus int
	GoalBonus         int
	Total             int
}

// SavingsRate returns the percentage of income saved, clamped to [0,100].
// Income <= 0 yields 0.
func SavingsRate(income, spent core.Money) float64 {
	f, _ := savingsRatio(income, spent).Float64()
	return f
}

// savingsRatio is the clamped savings rate as an exact fraction.
func savingsRatio(income, spent core.Money) *big.Rat {
	savings := income.Cents - spent.Cents
	switch {
	case income.Cents <= 0 || savings <= 0:
		return new(big.Rat)
	case savings >= income.Cents:
		return big.NewRat(100, 1)
	}
	r := big.NewRat(savings, income.Cents)
	return r.Mul(r, big.NewRat(100, 1))
}

// SavingsBonus is the whole-percent savings rate, floored.
func SavingsBonus(income, spent core.Money) int {
	r := savingsRatio(income, spent)
	return int(new(big.Int).Quo(r.Num(), r.Denom()).Int64())
}

// CalculatePoints scores self against partner for the same period.
func CalculatePoints(self, partner MonthlySummary) PointsBreakdown {
	var p PointsBreakdown

	p.SavingsBonus = SavingsBonus(self.Income, self.TotalSpent)

	// Integer ceiling: a 1 cent gap is still worth a point.
	if diff := partner.TotalSpent.Cents - self.TotalSpent.Cents; diff > 0 {
		p.LowerSpenderBonus = int((diff + CentsPerSpendPoint - 1) / CentsPerSpendPoint)
	}

	if self.HasGoal() && self.Savings.Cents >= self.SavingsGoal.Cents {
		p.GoalBonus = GoalBonusPoints
	}

	p.Total = p.SavingsBonus + p.LowerSpenderBonus + p.GoalBonus
	return p
}

// FairnessComponents are the three clamped sub-scores of the fairness index.
type FairnessComponents struct {
	SharedExpense float64
	SavingsRate   float64
	Contribution  float64
}

// Components computes all three fairness dimensions for self vs partner.
func Components(self, partner MonthlySummary) FairnessComponents {
	return FairnessComponents{
		SharedExpense: SharedExpenseFairness(self, partner),
		SavingsRate:   SavingsRateFairness(self, partner),
		Contribution:  ContributionFairness(self, partner),
	}
}

// Index combines the components with their weights, rounding half up.
func (c FairnessComponents) Index() int {
	weighted := sharedWeight*c.SharedExpense +
		savingsWeight*c.SavingsRate +
		contributionWeight*c.Contribution
	idx := int(math.Floor(weighted + 0.5))
	switch {
	case idx < 0:
		return 0
	case idx > 100:
		return 100
	}
	return idx
}

// FairnessIndex returns the 0-100 composite fairness score of the couple.
func FairnessIndex(self, partner MonthlySummary) int {
	return Components(self, partner).Index()
}

// SharedExpenseFairness measures how close self's share of joint costs is to
// half. No shared spending at all is trivially fair.
func SharedExpenseFairness(self, partner MonthlySummary) float64 {
	total := self.SharedSpent.Cents + partner.SharedSpent.Cents
	if total == 0 {
		return 100
	}
	share := float64(self.SharedSpent.Cents) / float64(total) * 100
	return clampPct(100 - math.Abs(share-50)*2)
}

// SavingsRateFairness penalises the gap between the two savings rates.
func SavingsRateFairness(self, partner MonthlySummary) float64 {
	return clampPct(100 - math.Abs(self.SavingsRate-partner.SavingsRate)*2)
}

// ContributionFairness compares self's share of spending with self's share
// of income.
func ContributionFairness(self, partner MonthlySummary) float64 {
	totalIncome := self.Income.Cents + partner.Income.Cents
	if totalIncome == 0 {
		return 100
	}
	expected := float64(self.Income.Cents) / float64(totalIncome) * 100

	actual := 50.0
	if totalSpent := self.TotalSpent.Cents + partner.TotalSpent.Cents; totalSpent != 0 {
		actual = float64(self.TotalSpent.Cents) / float64(totalSpent) * 100
	}
	return clampPct(100 - math.Abs(expected-actual)*2)
}

func clampPct(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
