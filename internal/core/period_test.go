package core

import (
	"testing"
	"time"
)

func TestPeriodArithmetic(t *testing.T) {
	p := Period("2024-12")
	if got := p.Next(); got != "2025-01" {
		t.Fatalf("Next = %s", got)
	}
	if got := Period("2024-01").Prev(); got != "2023-12" {
		t.Fatalf("Prev = %s", got)
	}
	if p.Year() != 2024 || p.Month() != 12 {
		t.Fatalf("Year/Month = %d/%d", p.Year(), p.Month())
	}
	if want := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC); !p.Start().Equal(want) {
		t.Fatalf("Start = %v", p.Start())
	}
	if !Period("2023-12").Before(p) || p.Before(p) {
		t.Fatal("Before ordering wrong")
	}
	if got := PeriodOf(time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)); got != "2024-04" {
		t.Fatalf("PeriodOf = %s", got)
	}
	if !Period("bad").Start().IsZero() {
		t.Fatal("invalid period should start at zero time")
	}
}
