package fairness

import (
	"errors"
	"fmt"
	"sort"

	"fairshare/internal/core"
)

// RewardTier is a static catalog entry unlocked at MinPoints cumulative points.
type RewardTier struct {
	ID              string
	Name            string
	MinPoints       int
	Reward          string
	EstimatedBudget core.Money
	Icon            string
}

// Progress describes the distance to the next tier. Next is nil once the
// top tier is reached, in which case Percent is 100 and PointsNeeded is 0.
type Progress struct {
	Next         *RewardTier
	PointsNeeded int
	Percent      float64
}

// Catalog is an ordered set of tiers with distinct, ascending thresholds.
type Catalog struct {
	tiers []RewardTier
}

var (
	ErrEmptyCatalog       = errors.New("tier catalog is empty")
	ErrDuplicateThreshold = errors.New("duplicate tier threshold")
	ErrNegativeThreshold  = errors.New("tier threshold cannot be negative")
	ErrEmptyTierID        = errors.New("tier id cannot be empty")
)

// NewCatalog sorts the tiers by threshold and checks they are distinct.
func NewCatalog(tiers ...RewardTier) (Catalog, error) {
	if len(tiers) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}
	sorted := append([]RewardTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPoints < sorted[j].MinPoints
	})
	for i, t := range sorted {
		if t.ID == "" {
			return Catalog{}, ErrEmptyTierID
		}
		if t.MinPoints < 0 {
			return Catalog{}, fmt.Errorf("tier %s: %w", t.ID, ErrNegativeThreshold)
		}
		if i > 0 && sorted[i-1].MinPoints == t.MinPoints {
			return Catalog{}, fmt.Errorf("tiers %s and %s at %d: %w", sorted[i-1].ID, t.ID, t.MinPoints, ErrDuplicateThreshold)
		}
	}
	return Catalog{tiers: sorted}, nil
}

// DefaultCatalog is the reference bronze/silver/gold catalog.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(
		RewardTier{ID: "bronze", Name: "Bronze", MinPoints: 30, Reward: "Coffee and dessert date", EstimatedBudget: core.Cents(1500), Icon: "🥉"},
		RewardTier{ID: "silver", Name: "Silver", MinPoints: 70, Reward: "Dinner at a restaurant of your choice", EstimatedBudget: core.Cents(6000), Icon: "🥈"},
		RewardTier{ID: "gold", Name: "Gold", MinPoints: 150, Reward: "Weekend getaway", EstimatedBudget: core.Cents(25000), Icon: "🥇"},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Tiers returns a copy of the tiers in ascending order.
func (c Catalog) Tiers() []RewardTier {
	return append([]RewardTier(nil), c.tiers...)
}

// Len returns the number of tiers.
func (c Catalog) Len() int {
	return len(c.tiers)
}

// CurrentTier returns the highest tier whose threshold is <= points.
// The boolean is false when no tier is unlocked yet.
func (c Catalog) CurrentTier(points int) (RewardTier, bool) {
	// First tier strictly above points; the one before it is current.
	i := sort.Search(len(c.tiers), func(i int) bool { return c.tiers[i].MinPoints > points })
	if i == 0 {
		return RewardTier{}, false
	}
	return c.tiers[i-1], true
}

// NextTierProgress reports the lowest tier above points and how far along
// the way from the previous threshold (0 for the first tier) points is.
func (c Catalog) NextTierProgress(points int) Progress {
	i := sort.Search(len(c.tiers), func(i int) bool { return c.tiers[i].MinPoints > points })
	if i == len(c.tiers) {
		return Progress{Percent: 100}
	}
	next := c.tiers[i]
	prev := 0
	if i > 0 {
		prev = c.tiers[i-1].MinPoints
	}
	pct := float64(points-prev) / float64(next.MinPoints-prev) * 100
	if pct > 100 {
		pct = 100
	}
	return Progress{
		Next:         &next,
		PointsNeeded: next.MinPoints - points,
		Percent:      pct,
	}
}

// Standing is a party's cumulative position in the catalog.
type Standing struct {
	Points   int
	Tier     *RewardTier
	Progress Progress
	Value    core.Money
}

// Standing resolves tier, progress and display value for cumulative points.
// centsPerPoint only affects Value.
func (c Catalog) Standing(points int, centsPerPoint int64) Standing {
	s := Standing{
		Points:   points,
		Progress: c.NextTierProgress(points),
		Value:    RewardValue(points, centsPerPoint),
	}
	if t, ok := c.CurrentTier(points); ok {
		s.Tier = &t
	}
	return s
}

// RewardValue converts points to a currency amount for display.
func RewardValue(points int, centsPerPoint int64) core.Money {
	return core.Money{Cents: int64(points) * centsPerPoint}
}
