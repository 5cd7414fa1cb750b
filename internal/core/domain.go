package core

import (
	"errors"
	"strings"
)

const (
	PolicySharedTreat RewardPolicy = "shared_treat"
	PolicyWinnerPicks RewardPolicy = "winner_picks"
	PolicyDonate      RewardPolicy = "donate"
)

type (
	// RewardPolicy decides what a couple does with an unlocked tier reward.
	RewardPolicy string

	// Couple pairs the two parties whose summaries are compared.
	Couple struct {
		ID        string
		SelfID    string
		PartnerID string
	}

	// Settings are the per-couple display preferences. CentsPerPoint only
	// feeds the displayed reward value; it never changes scoring.
	Settings struct {
		CoupleID      string
		RewardPolicy  RewardPolicy
		CentsPerPoint int64
	}
)

var (
	ErrEmptyParty      = errors.New("empty party id")
	ErrEmptyCouple     = errors.New("empty couple id")
	ErrSameParty       = errors.New("self and partner must be different parties")
	ErrInvalidPolicy   = errors.New("invalid reward policy")
	ErrNegativeRate    = errors.New("cents per point cannot be negative")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrDisplayNameLong = errors.New("display name too long (max 100 characters)")
)

// DefaultSettings is what a couple gets before saving anything.
func DefaultSettings(coupleID string) Settings {
	return Settings{
		CoupleID:      coupleID,
		RewardPolicy:  PolicySharedTreat,
		CentsPerPoint: 10,
	}
}

func (p RewardPolicy) Validate() error {
	switch p {
	case PolicySharedTreat, PolicyWinnerPicks, PolicyDonate:
		return nil
	default:
		return ErrInvalidPolicy
	}
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.CoupleID) == "" {
		return ErrEmptyCouple
	}
	if err := s.RewardPolicy.Validate(); err != nil {
		return err
	}
	if s.CentsPerPoint < 0 {
		return ErrNegativeRate
	}
	return nil
}

func (c Couple) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCouple
	}
	if strings.TrimSpace(c.SelfID) == "" || strings.TrimSpace(c.PartnerID) == "" {
		return ErrEmptyParty
	}
	if c.SelfID == c.PartnerID {
		return ErrSameParty
	}
	return nil
}
