package fairness

import (
	"reflect"
	"testing"
)

func TestCompare_WhoSpentMore(t *testing.T) {
	tests := []struct {
		name         string
		selfSpent    int64
		partnerSpent int64
		want         Side
		wantDiff     int64
	}{
		{"within band", 100000, 100400, SideEqual, 400},
		{"exactly on band edge", 100000, 100500, SideEqual, 500},
		{"partner just outside band", 100000, 100501, SidePartner, 501},
		{"self just outside band", 100501, 100000, SideSelf, 501},
		{"identical", 100000, 100000, SideEqual, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(summary("a", 200000, tt.selfSpent, 0), summary("b", 200000, tt.partnerSpent, 0))
			if cmp.WhoSpentMore != tt.want {
				t.Errorf("WhoSpentMore = %s, want %s", cmp.WhoSpentMore, tt.want)
			}
			if cmp.SpendingDiff.Cents != tt.wantDiff {
				t.Errorf("SpendingDiff = %d, want %d", cmp.SpendingDiff.Cents, tt.wantDiff)
			}
		})
	}
}

func TestCompare_WhoSavedMore(t *testing.T) {
	tests := []struct {
		name         string
		partnerSpent int64 // self always saves 40%
		want         Side
	}{
		{"half a point apart", 60500, SideEqual},
		{"exactly one point apart", 61000, SideEqual},
		{"1.1 points apart", 61100, SideSelf},
		{"partner saves more", 58000, SidePartner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(summary("a", 100000, 60000, 0), summary("b", 100000, tt.partnerSpent, 0))
			if cmp.WhoSavedMore != tt.want {
				t.Errorf("WhoSavedMore = %s, want %s (rates %v vs %v)",
					cmp.WhoSavedMore, tt.want, cmp.Self.SavingsRate, cmp.Partner.SavingsRate)
			}
		})
	}
}

func TestCompare_SpendingDiffPct(t *testing.T) {
	tests := []struct {
		name         string
		selfSpent    int64
		partnerSpent int64
		want         float64
	}{
		{"self spent half of partner", 50000, 100000, -50},
		{"self spent more", 100000, 80000, 20},
		{"nobody spent", 0, 0, 0},
		{"only partner spent", 0, 1000, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(summary("a", 0, tt.selfSpent, 0), summary("b", 0, tt.partnerSpent, 0))
			if cmp.SpendingDiffPct != tt.want {
				t.Errorf("SpendingDiffPct = %v, want %v", cmp.SpendingDiffPct, tt.want)
			}
		})
	}
}

func TestCompare_EmbedsFairnessIndex(t *testing.T) {
	self := summary("a", 300000, 150000, 60000)
	partner := summary("b", 300000, 150000, 0)
	cmp := Compare(self, partner)
	if cmp.FairnessIndex != 70 {
		t.Fatalf("FairnessIndex = %d, want 70", cmp.FairnessIndex)
	}
	if cmp.Period != "2025-11" {
		t.Fatalf("Period = %s", cmp.Period)
	}
}

func TestCompare_Idempotent(t *testing.T) {
	self := withGoal(summary("a", 250000, 180000, 70000), 50000)
	partner := summary("b", 310000, 120000, 30000)

	first := Compare(self, partner)
	second := Compare(self, partner)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Compare is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestEvaluate(t *testing.T) {
	self := summary("a", 200000, 100000, 40000)
	partner := summary("b", 200000, 102500, 40000)

	res := Evaluate(self, partner)
	if res.SelfPoints.LowerSpenderBonus != 3 {
		t.Fatalf("self lower spender bonus: got %d", res.SelfPoints.LowerSpenderBonus)
	}
	if res.PartnerPoints.LowerSpenderBonus != 0 {
		t.Fatalf("partner lower spender bonus: got %d", res.PartnerPoints.LowerSpenderBonus)
	}
	if res.Comparison.FairnessIndex != res.Components.Index() {
		t.Fatalf("index mismatch: %d vs %d", res.Comparison.FairnessIndex, res.Components.Index())
	}
}

func TestCompare_WhoSavedMoreOnePointGap(t *testing.T) {
	pairs := []struct {
		selfSpent    int64
		partnerSpent int64
	}{
		{70, 71},
		{41, 42},
		{45, 46},
		{72, 73},
		{86, 87},
		{71, 70},
	}
	for _, p := range pairs {
		cmp := Compare(summary("a", 100, p.selfSpent, 0), summary("b", 100, p.partnerSpent, 0))
		if cmp.WhoSavedMore != SideEqual {
			t.Errorf("spent %d vs %d: WhoSavedMore = %s, want equal", p.selfSpent, p.partnerSpent, cmp.WhoSavedMore)
		}
	}

	cmp := Compare(summary("a", 100, 70, 0), summary("b", 100, 72, 0))
	if cmp.WhoSavedMore != SideSelf {
		t.Errorf("two point gap: WhoSavedMore = %s, want self", cmp.WhoSavedMore)
	}
	cmp = Compare(summary("a", 300, 201, 0), summary("b", 100, 65, 0))
	if cmp.WhoSavedMore != SidePartner {
		t.Errorf("33.33 vs 35: WhoSavedMore = %s, want partner", cmp.WhoSavedMore)
	}
}
