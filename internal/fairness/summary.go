// Package fairness implements the FairShare scoring engine: savings rate,
// per-period points, the couple fairness index, the comparison builder and
// the reward tier resolver.
//
// Every function here is pure. Nothing reads a clock, a random source or a
// store, so results are identical for identical inputs and all functions are
// safe for concurrent use.
package fairness

import (
	"fmt"
	"strings"

	"fairshare/internal/core"
)

// MonthlySummary is one party's financial facts for one period.
// Build it with NewMonthlySummary so Savings and SavingsRate stay derived.
type MonthlySummary struct {
	PartyID       string
	DisplayName   string
	Period        core.Period
	Income        core.Money
	TotalSpent    core.Money
	Savings       core.Money // Income - TotalSpent, may be negative
	SavingsRate   float64    // always within [0,100]
	SharedSpent   core.Money
	PersonalSpent core.Money
	SavingsGoal   *core.Money
}

// SummaryInput carries the raw facts a summary is derived from.
type SummaryInput struct {
	PartyID       string
	DisplayName   string
	Period        core.Period
	Income        core.Money
	TotalSpent    core.Money
	SharedSpent   core.Money
	PersonalSpent core.Money
	SavingsGoal   *core.Money
}

// NewMonthlySummary derives savings and savings rate from the input.
// It does not validate; call Validate at the boundary where input arrives.
func NewMonthlySummary(in SummaryInput) MonthlySummary {
	var goal *core.Money
	if in.SavingsGoal != nil {
		g := *in.SavingsGoal
		goal = &g
	}
	return MonthlySummary{
		PartyID:       in.PartyID,
		DisplayName:   in.DisplayName,
		Period:        in.Period,
		Income:        in.Income,
		TotalSpent:    in.TotalSpent,
		Savings:       in.Income.Sub(in.TotalSpent),
		SavingsRate:   SavingsRate(in.Income, in.TotalSpent),
		SharedSpent:   in.SharedSpent,
		PersonalSpent: in.PersonalSpent,
		SavingsGoal:   goal,
	}
}

// Input returns the raw facts of s, the inverse of NewMonthlySummary.
func (s MonthlySummary) Input() SummaryInput {
	return SummaryInput{
		PartyID:       s.PartyID,
		DisplayName:   s.DisplayName,
		Period:        s.Period,
		Income:        s.Income,
		TotalSpent:    s.TotalSpent,
		SharedSpent:   s.SharedSpent,
		PersonalSpent: s.PersonalSpent,
		SavingsGoal:   s.SavingsGoal,
	}
}

// HasGoal reports whether a savings goal was set.
func (s MonthlySummary) HasGoal() bool {
	return s.SavingsGoal != nil
}

// Validate rejects values the engine would score nonsensically: negative
// amounts, an empty party and a malformed period. SharedSpent+PersonalSpent
// is not required to equal TotalSpent.
func (s MonthlySummary) Validate() error {
	if strings.TrimSpace(s.PartyID) == "" {
		return core.ErrEmptyParty
	}
	if len(s.DisplayName) > 100 {
		return core.ErrDisplayNameLong
	}
	if err := s.Period.Validate(); err != nil {
		return err
	}
	amounts := []struct {
		name string
		m    core.Money
	}{
		{"income", s.Income},
		{"total spent", s.TotalSpent},
		{"shared spent", s.SharedSpent},
		{"personal spent", s.PersonalSpent},
	}
	for _, a := range amounts {
		if a.m.IsNegative() {
			return fmt.Errorf("%s: %w", a.name, core.ErrNegativeAmount)
		}
	}
	if s.SavingsGoal != nil && s.SavingsGoal.IsNegative() {
		return fmt.Errorf("savings goal: %w", core.ErrNegativeAmount)
	}
	return nil
}
