package http

import (
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	"fairshare/internal/services"
	"fairshare/internal/sheets"
)

// Wire shapes. Money is always integer cents plus a formatted string.

type summaryDTO struct {
	PartyID            string  `json:"party_id"`
	DisplayName        string  `json:"display_name,omitempty"`
	Period             string  `json:"period"`
	IncomeCents        int64   `json:"income_cents"`
	TotalSpentCents    int64   `json:"total_spent_cents"`
	SavingsCents       int64   `json:"savings_cents"`
	SavingsRate        float64 `json:"savings_rate"`
	SharedSpentCents   int64   `json:"shared_spent_cents"`
	PersonalSpentCents int64   `json:"personal_spent_cents"`
	SavingsGoalCents   *int64  `json:"savings_goal_cents,omitempty"`
}

type pointsDTO struct {
	SavingsBonus      int `json:"savings_bonus"`
	LowerSpenderBonus int `json:"lower_spender_bonus"`
	GoalBonus         int `json:"goal_bonus"`
	Total             int `json:"total"`
}

type componentsDTO struct {
	SharedExpense float64 `json:"shared_expense"`
	SavingsRate   float64 `json:"savings_rate"`
	Contribution  float64 `json:"contribution"`
}

type comparisonDTO struct {
	Period            string        `json:"period"`
	Self              summaryDTO    `json:"self"`
	Partner           summaryDTO    `json:"partner"`
	SpendingDiffCents int64         `json:"spending_diff_cents"`
	SpendingDiff      string        `json:"spending_diff"`
	SpendingDiffPct   float64       `json:"spending_diff_pct"`
	WhoSavedMore      string        `json:"who_saved_more"`
	WhoSpentMore      string        `json:"who_spent_more"`
	FairnessIndex     int           `json:"fairness_index"`
	Components        componentsDTO `json:"components"`
	SelfPoints        pointsDTO     `json:"self_points"`
	PartnerPoints     pointsDTO     `json:"partner_points"`
}

type tierDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	MinPoints            int    `json:"min_points"`
	Reward               string `json:"reward"`
	EstimatedBudgetCents int64  `json:"estimated_budget_cents"`
	Icon                 string `json:"icon,omitempty"`
}

type standingDTO struct {
	PartyID          string   `json:"party_id"`
	Points           int      `json:"points"`
	Tier             *tierDTO `json:"tier"`
	NextTier         *tierDTO `json:"next_tier"`
	PointsNeeded     int      `json:"points_needed"`
	ProgressPct      float64  `json:"progress_pct"`
	RewardValueCents int64    `json:"reward_value_cents"`
	RewardValue      string   `json:"reward_value"`
}

type ledgerDTO struct {
	PartyID       string     `json:"party_id"`
	CoupleID      string     `json:"couple_id,omitempty"`
	Period        string     `json:"period"`
	Points        pointsDTO  `json:"points"`
	FairnessIndex int        `json:"fairness_index"`
	ClosedAt      time.Time  `json:"closed_at"`
	ExportedAt    *time.Time `json:"exported_at,omitempty"`
}

type closeDTO struct {
	Comparison        comparisonDTO `json:"comparison"`
	SelfCumulative    int           `json:"self_cumulative"`
	PartnerCumulative int           `json:"partner_cumulative"`
	Published         bool          `json:"published"`
}

type settingsDTO struct {
	CoupleID      string `json:"couple_id"`
	RewardPolicy  string `json:"reward_policy"`
	CentsPerPoint int64  `json:"cents_per_point"`
}

type coupleDTO struct {
	ID        string `json:"id"`
	SelfID    string `json:"self_id"`
	PartnerID string `json:"partner_id"`
}

func toSummaryDTO(s fairness.MonthlySummary) summaryDTO {
	d := summaryDTO{
		PartyID:            s.PartyID,
		DisplayName:        s.DisplayName,
		Period:             string(s.Period),
		IncomeCents:        s.Income.Cents,
		TotalSpentCents:    s.TotalSpent.Cents,
		SavingsCents:       s.Savings.Cents,
		SavingsRate:        s.SavingsRate,
		SharedSpentCents:   s.SharedSpent.Cents,
		PersonalSpentCents: s.PersonalSpent.Cents,
	}
	if s.SavingsGoal != nil {
		goal := s.SavingsGoal.Cents
		d.SavingsGoalCents = &goal
	}
	return d
}

func toPointsDTO(p fairness.PointsBreakdown) pointsDTO {
	return pointsDTO{
		SavingsBonus:      p.SavingsBonus,
		LowerSpenderBonus: p.LowerSpenderBonus,
		GoalBonus:         p.GoalBonus,
		Total:             p.Total,
	}
}

func toComparisonDTO(res fairness.PeriodResult) comparisonDTO {
	c := res.Comparison
	return comparisonDTO{
		Period:            string(c.Period),
		Self:              toSummaryDTO(c.Self),
		Partner:           toSummaryDTO(c.Partner),
		SpendingDiffCents: c.SpendingDiff.Cents,
		SpendingDiff:      c.SpendingDiff.String(),
		SpendingDiffPct:   c.SpendingDiffPct,
		WhoSavedMore:      string(c.WhoSavedMore),
		WhoSpentMore:      string(c.WhoSpentMore),
		FairnessIndex:     c.FairnessIndex,
		Components: componentsDTO{
			SharedExpense: res.Components.SharedExpense,
			SavingsRate:   res.Components.SavingsRate,
			Contribution:  res.Components.Contribution,
		},
		SelfPoints:    toPointsDTO(res.SelfPoints),
		PartnerPoints: toPointsDTO(res.PartnerPoints),
	}
}

func toTierDTO(t *fairness.RewardTier) *tierDTO {
	if t == nil {
		return nil
	}
	return &tierDTO{
		ID:                   t.ID,
		Name:                 t.Name,
		MinPoints:            t.MinPoints,
		Reward:               t.Reward,
		EstimatedBudgetCents: t.EstimatedBudget.Cents,
		Icon:                 t.Icon,
	}
}

func toStandingDTO(partyID string, s fairness.Standing) standingDTO {
	return standingDTO{
		PartyID:          partyID,
		Points:           s.Points,
		Tier:             toTierDTO(s.Tier),
		NextTier:         toTierDTO(s.Progress.Next),
		PointsNeeded:     s.Progress.PointsNeeded,
		ProgressPct:      s.Progress.Percent,
		RewardValueCents: s.Value.Cents,
		RewardValue:      s.Value.String(),
	}
}

func toLedgerDTO(p sheets.PeriodPoints) ledgerDTO {
	return ledgerDTO{
		PartyID:       p.PartyID,
		CoupleID:      p.CoupleID,
		Period:        string(p.Period),
		Points:        toPointsDTO(p.Breakdown),
		FairnessIndex: p.FairnessIndex,
		ClosedAt:      p.ClosedAt,
		ExportedAt:    p.ExportedAt,
	}
}

func toCloseDTO(r services.CloseResult) closeDTO {
	return closeDTO{
		Comparison:        toComparisonDTO(r.Result),
		SelfCumulative:    r.SelfCumulative,
		PartnerCumulative: r.PartnerCumulative,
		Published:         r.Published,
	}
}

func toSettingsDTO(s core.Settings) settingsDTO {
	return settingsDTO{
		CoupleID:      s.CoupleID,
		RewardPolicy:  string(s.RewardPolicy),
		CentsPerPoint: s.CentsPerPoint,
	}
}

func toCoupleDTO(c core.Couple) coupleDTO {
	return coupleDTO{ID: c.ID, SelfID: c.SelfID, PartnerID: c.PartnerID}
}
