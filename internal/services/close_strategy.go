package services

import (
	"fmt"
	"time"

	"fairshare/internal/core"
)

// CloseChecker decides whether a period can be closed at a given instant.
type CloseChecker interface {
	IsDue(period core.Period, now time.Time) bool
}

// MonthEndChecker closes a period as soon as the next one starts.
type MonthEndChecker struct{}

func (MonthEndChecker) IsDue(period core.Period, now time.Time) bool {
	if period.Validate() != nil {
		return false
	}
	return !now.Before(period.Next().Start())
}

// GraceChecker waits Grace after the month ends so late summaries can land.
type GraceChecker struct {
	Grace time.Duration
}

func (g GraceChecker) IsDue(period core.Period, now time.Time) bool {
	if period.Validate() != nil {
		return false
	}
	return !now.Before(period.Next().Start().Add(g.Grace))
}

var closeStrategies = map[string]CloseChecker{
	"month_end": MonthEndChecker{},
}

// GetCloseChecker returns a registered checker by name.
func GetCloseChecker(name string) (CloseChecker, error) {
	checker, ok := closeStrategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown close strategy: %s", name)
	}
	return checker, nil
}

// RegisterCloseChecker adds or replaces a named checker.
func RegisterCloseChecker(name string, checker CloseChecker) {
	closeStrategies[name] = checker
}

// CheckerFor picks the checker for a configured grace period.
func CheckerFor(grace time.Duration) CloseChecker {
	if grace <= 0 {
		return MonthEndChecker{}
	}
	return GraceChecker{Grace: grace}
}
