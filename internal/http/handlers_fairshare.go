package http

import (
	"net/http"
	"strings"

	"fairshare/internal/core"
	"fairshare/internal/fairness"
	applog "fairshare/internal/log"
	"fairshare/internal/services"
)

// handleComparison serves GET /api/comparison?period=&self=&partner=.
func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := parsePeriodParam(q, "period", s.now())
	if err != nil {
		errorResponse(r, err, applog.OpCompare).Write(w)
		return
	}
	res, err := s.service.Evaluate(r.Context(), period, sanitizeInput(q.Get("self")), sanitizeInput(q.Get("partner")))
	if err != nil {
		errorResponse(r, err, applog.OpCompare).Write(w)
		return
	}
	s.appMetrics.comparisons.Add(1)
	NewResponse().JSON(toComparisonDTO(res)).Write(w)
}

// handlePoints serves the self party's points for a period. Points are
// relative, so the partner is required too.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := parsePeriodParam(q, "period", s.now())
	if err != nil {
		errorResponse(r, err, applog.OpScore).Write(w)
		return
	}
	self := sanitizeInput(q.Get("self"))
	points, err := s.service.Points(r.Context(), period, self, sanitizeInput(q.Get("partner")))
	if err != nil {
		errorResponse(r, err, applog.OpScore).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{
		"party_id": self,
		"period":   string(period),
		"points":   toPointsDTO(points),
	}).Write(w)
}

func (s *Server) handleSaveSummary(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		badRequest(r, err.Error()).Write(w)
		return
	}

	period, err := core.ParsePeriod(p.Get("period"))
	if err != nil {
		errorResponse(r, err, applog.OpSaveSummary).Write(w)
		return
	}
	in := fairness.SummaryInput{
		PartyID:     p.Get("party_id"),
		DisplayName: p.Get("display_name"),
		Period:      period,
	}
	for _, f := range []struct {
		key string
		dst *core.Money
	}{
		{"income", &in.Income},
		{"total_spent", &in.TotalSpent},
		{"shared_spent", &in.SharedSpent},
		{"personal_spent", &in.PersonalSpent},
	} {
		if *f.dst, err = p.GetMoney(f.key); err != nil {
			errorResponse(r, err, applog.OpSaveSummary).Write(w)
			return
		}
	}
	if in.SavingsGoal, err = p.GetOptionalMoney("savings_goal"); err != nil {
		errorResponse(r, err, applog.OpSaveSummary).Write(w)
		return
	}

	sum := fairness.NewMonthlySummary(in)
	if err := s.service.SaveSummary(r.Context(), sum); err != nil {
		errorResponse(r, err, applog.OpSaveSummary).Write(w)
		return
	}
	s.appMetrics.summariesSaved.Add(1)
	NewResponse().Status(http.StatusCreated).JSON(toSummaryDTO(sum)).Write(w)
}

func (s *Server) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		badRequest(r, err.Error()).Write(w)
		return
	}
	period, err := core.ParsePeriod(p.Get("period"))
	if err != nil {
		errorResponse(r, err, applog.OpClosePeriod).Write(w)
		return
	}
	req := services.CloseRequest{
		CoupleID:  p.Get("couple_id"),
		Period:    period,
		SelfID:    p.Get("self"),
		PartnerID: p.Get("partner"),
	}
	if req.CoupleID == "" && (req.SelfID == "" || req.PartnerID == "") {
		badRequest(r, "couple_id or both self and partner are required").Write(w)
		return
	}

	res, err := s.service.ClosePeriod(r.Context(), req)
	if err != nil {
		errorResponse(r, err, applog.OpClosePeriod).Write(w)
		return
	}
	s.appMetrics.periodsClosed.Add(1)
	NewResponse().JSON(toCloseDTO(res)).Write(w)
}

// handleStanding serves GET /api/standing?party=&couple=. The couple is
// optional and only selects the reward value rate.
func (s *Server) handleStanding(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	party := sanitizeInput(q.Get("party"))
	standing, err := s.service.Standing(r.Context(), party, sanitizeInput(q.Get("couple")))
	if err != nil {
		errorResponse(r, err, applog.OpStanding).Write(w)
		return
	}
	NewResponse().JSON(toStandingDTO(party, standing)).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	party := sanitizeInput(r.URL.Query().Get("party"))
	rows, err := s.service.History(r.Context(), party)
	if err != nil {
		errorResponse(r, err, "history").Write(w)
		return
	}
	out := make([]ledgerDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLedgerDTO(row))
	}
	NewResponse().JSON(map[string]any{"party_id": party, "periods": out}).Write(w)
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	tiers := s.service.Tiers()
	out := make([]*tierDTO, 0, len(tiers))
	for i := range tiers {
		out = append(out, toTierDTO(&tiers[i]))
	}
	NewResponse().JSON(map[string]any{"tiers": out}).Write(w)
}

// handleSettings serves GET and PUT /api/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPut); resp != nil {
		resp.Write(w)
		return
	}

	if r.Method == http.MethodGet {
		st, err := s.service.GetSettings(r.Context(), sanitizeInput(r.URL.Query().Get("couple")))
		if err != nil {
			errorResponse(r, err, applog.OpSettings).Write(w)
			return
		}
		NewResponse().JSON(toSettingsDTO(st)).Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		badRequest(r, err.Error()).Write(w)
		return
	}
	coupleID := p.Get("couple_id")
	current, err := s.service.GetSettings(r.Context(), coupleID)
	if err != nil {
		errorResponse(r, err, applog.OpSettings).Write(w)
		return
	}
	if v := p.Get("reward_policy"); v != "" {
		current.RewardPolicy = core.RewardPolicy(strings.ToLower(v))
	}
	if current.CentsPerPoint, err = p.GetInt64("cents_per_point", current.CentsPerPoint); err != nil {
		badRequest(r, err.Error()).Write(w)
		return
	}
	if err := s.service.UpdateSettings(r.Context(), current); err != nil {
		errorResponse(r, err, applog.OpSettings).Write(w)
		return
	}
	NewResponse().JSON(toSettingsDTO(current)).Write(w)
}

// handleCouples serves GET and POST /api/couples. Registered couples are
// what the period closer walks.
func (s *Server) handleCouples(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	if r.Method == http.MethodGet {
		couples, err := s.service.ListCouples(r.Context())
		if err != nil {
			errorResponse(r, err, "couples").Write(w)
			return
		}
		out := make([]coupleDTO, 0, len(couples))
		for _, c := range couples {
			out = append(out, toCoupleDTO(c))
		}
		NewResponse().JSON(map[string]any{"couples": out}).Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		badRequest(r, err.Error()).Write(w)
		return
	}
	c := core.Couple{ID: p.Get("id"), SelfID: p.Get("self_id"), PartnerID: p.Get("partner_id")}
	if err := s.service.SaveCouple(r.Context(), c); err != nil {
		errorResponse(r, err, "couples").Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toCoupleDTO(c)).Write(w)
}
