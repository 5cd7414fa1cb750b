package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	"fairshare/internal/sheets"
)

// Store keeps every port in process memory. It backs the memory data
// backend and doubles as the fake used by service and HTTP tests.
type Store struct {
	mu        sync.Mutex
	summaries map[string]fairness.MonthlySummary
	ledger    map[string]sheets.PeriodPoints
	settings  map[string]core.Settings
	couples   map[string]core.Couple
	exported  []sheets.PeriodPoints
}

func New(couples ...core.Couple) *Store {
	s := &Store{
		summaries: make(map[string]fairness.MonthlySummary),
		ledger:    make(map[string]sheets.PeriodPoints),
		settings:  make(map[string]core.Settings),
		couples:   make(map[string]core.Couple),
	}
	for _, c := range couples {
		if c.Validate() == nil {
			s.couples[c.ID] = c
		}
	}
	return s
}

// NewFromFiles seeds couples from seed_couples.txt, one "id,self,partner"
// per line. A missing or empty file yields a single demo couple.
func NewFromFiles(base string) *Store {
	var couples []core.Couple
	for _, line := range readLines(filepath.Join(base, "seed_couples.txt")) {
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			continue
		}
		couples = append(couples, core.Couple{
			ID:        strings.TrimSpace(parts[0]),
			SelfID:    strings.TrimSpace(parts[1]),
			PartnerID: strings.TrimSpace(parts[2]),
		})
	}
	if len(couples) == 0 {
		couples = []core.Couple{{ID: "home", SelfID: "me", PartnerID: "partner"}}
	}
	return New(couples...)
}

func (s *Store) GetSummary(_ context.Context, partyID string, period core.Period) (fairness.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[sheets.Key(partyID, period)]
	if !ok {
		return fairness.MonthlySummary{}, fmt.Errorf("%s %s: %w", partyID, period, sheets.ErrSummaryNotFound)
	}
	return sum, nil
}

func (s *Store) ListSummaries(_ context.Context, period core.Period) ([]fairness.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fairness.MonthlySummary
	for _, sum := range s.summaries {
		if sum.Period == period {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartyID < out[j].PartyID })
	return out, nil
}

func (s *Store) SaveSummary(_ context.Context, sum fairness.MonthlySummary) error {
	if err := sum.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sheets.Key(sum.PartyID, sum.Period)] = sum
	return nil
}

func (s *Store) RecordPeriod(_ context.Context, p sheets.PeriodPoints) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sheets.Key(p.PartyID, p.Period)
	if _, ok := s.ledger[key]; ok {
		return fmt.Errorf("%s %s: %w", p.PartyID, p.Period, sheets.ErrPeriodAlreadyClosed)
	}
	if p.ClosedAt.IsZero() {
		p.ClosedAt = time.Now().UTC()
	}
	s.ledger[key] = p
	return nil
}

func (s *Store) GetPeriod(_ context.Context, partyID string, period core.Period) (sheets.PeriodPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ledger[sheets.Key(partyID, period)]
	if !ok {
		return sheets.PeriodPoints{}, fmt.Errorf("%s %s: %w", partyID, period, sheets.ErrPeriodNotClosed)
	}
	return p, nil
}

func (s *Store) HasClosed(_ context.Context, partyID string, period core.Period) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ledger[sheets.Key(partyID, period)]
	return ok, nil
}

func (s *Store) CumulativePoints(_ context.Context, partyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, p := range s.ledger {
		if p.PartyID == partyID {
			total += p.Breakdown.Total
		}
	}
	return total, nil
}

func (s *Store) ListPeriods(_ context.Context, partyID string) ([]sheets.PeriodPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.PeriodPoints
	for _, p := range s.ledger {
		if p.PartyID == partyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (s *Store) PendingExports(_ context.Context, limit int) ([]sheets.PeriodPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.PeriodPoints
	for _, p := range s.ledger {
		if p.ExportedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].PartyID < out[j].PartyID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, partyID string, period core.Period, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sheets.Key(partyID, period)
	p, ok := s.ledger[key]
	if !ok {
		return fmt.Errorf("%s %s: %w", partyID, period, sheets.ErrPeriodNotClosed)
	}
	p.ExportedAt = &at
	s.ledger[key] = p
	return nil
}

// ExportPoints records the row and returns a synthetic row reference.
func (s *Store) ExportPoints(_ context.Context, p sheets.PeriodPoints) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported = append(s.exported, p)
	return fmt.Sprintf("mem:%d", len(s.exported)), nil
}

// Exported returns the rows passed to ExportPoints, oldest first.
func (s *Store) Exported() []sheets.PeriodPoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.PeriodPoints(nil), s.exported...)
}

func (s *Store) GetSettings(_ context.Context, coupleID string) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.settings[coupleID]; ok {
		return st, nil
	}
	return core.DefaultSettings(coupleID), nil
}

func (s *Store) SaveSettings(_ context.Context, st core.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.CoupleID] = st
	return nil
}

func (s *Store) SaveCouple(_ context.Context, c core.Couple) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couples[c.ID] = c
	return nil
}

func (s *Store) GetCouple(_ context.Context, id string) (core.Couple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couples[id]
	if !ok {
		return core.Couple{}, fmt.Errorf("%s: %w", id, sheets.ErrCoupleNotFound)
	}
	return c, nil
}

func (s *Store) ListCouples(_ context.Context) ([]core.Couple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Couple, 0, len(s.couples))
	for _, c := range s.couples {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
