package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fairshare/internal/core"
)

func newBodyRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/summaries", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestRequestBodyParser_Get(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
	}{
		{"json string", `{"party_id":" me "}`, "application/json", "party_id", "me", true},
		{"json number", `{"income":2500.5}`, "application/json", "income", "2500.5", true},
		{"json large integer keeps precision", `{"income_cents":900719925474099312}`, "", "income_cents", "900719925474099312", true},
		{"form value", "party_id=me&period=2024-03", "application/x-www-form-urlencoded", "period", "2024-03", false},
		{"control characters stripped", "party_id=m%00e", "", "party_id", "me", false},
		{"missing key", `{"a":"b"}`, "", "party_id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestBodyParser(newBodyRequest(tt.body, tt.contentType))
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParser_ParseErrors(t *testing.T) {
	p := NewRequestBodyParser(newBodyRequest(`{"party_id":`, "application/json"))
	if err := p.Parse(); err == nil {
		t.Error("expected error for truncated JSON")
	}
	// parsing twice returns the same error
	if err := p.Parse(); err == nil {
		t.Error("expected cached error on second Parse")
	}

	big := newBodyRequest("a="+strings.Repeat("x", maxBodyBytes), "")
	p = NewRequestBodyParser(big)
	if err := p.Parse(); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Parse() error = %v, want ErrBodyTooLarge", err)
	}
}

func TestRequestBodyParser_GetMoney(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int64
		wantErr bool
	}{
		{"decimal string with comma", `income=2500,50`, 250050, false},
		{"decimal json number", `{"income":12.345}`, 1235, false},
		{"integer cents", `{"income_cents":250050}`, 250050, false},
		{"cents win over decimal", `{"income":"1","income_cents":500}`, 500, false},
		{"absent is zero", `{}`, 0, false},
		{"negative cents", `{"income_cents":-1}`, 0, true},
		{"negative decimal", `income=-5`, 0, true},
		{"garbage", `income=abc`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestBodyParser(newBodyRequest(tt.body, ""))
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := p.GetMoney("income")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetMoney() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Cents != tt.want {
				t.Errorf("GetMoney() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_GetOptionalMoney(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *core.Money
	}{
		{"absent", `{"income":"10"}`, nil},
		{"null", `{"savings_goal":null}`, nil},
		{"empty form value", `savings_goal=`, nil},
		{"zero goal is set", `{"savings_goal_cents":0}`, &core.Money{Cents: 0}},
		{"decimal goal", `savings_goal=300`, &core.Money{Cents: 30000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestBodyParser(newBodyRequest(tt.body, ""))
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := p.GetOptionalMoney("savings_goal")
			if err != nil {
				t.Fatalf("GetOptionalMoney() error = %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("GetOptionalMoney() = %v, want nil", *got)
			case tt.want != nil && (got == nil || got.Cents != tt.want.Cents):
				t.Errorf("GetOptionalMoney() = %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/settings", nil)
	if RequireMethod(req, http.MethodGet, http.MethodPut) != nil {
		t.Error("PUT should be allowed")
	}
	resp := RequireMethod(req, http.MethodGet)
	if resp == nil {
		t.Fatal("PUT should not be allowed")
	}
	rr := httptest.NewRecorder()
	resp.Write(rr)
	if rr.Code != http.StatusMethodNotAllowed || rr.Header().Get("Allow") != "GET" {
		t.Errorf("got %d Allow=%q", rr.Code, rr.Header().Get("Allow"))
	}
}
