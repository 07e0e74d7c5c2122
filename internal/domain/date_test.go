package domain

import (
	"testing"
	"time"
)

func TestDaysUntil(t *testing.T) {
	start := Date{Year: 2026, Month: time.March, Day: 1}
	if days := start.DaysUntil(Date{Year: 2026, Month: time.March, Day: 31}); days != 30 {
		t.Fatalf("expected 30 days, got %d", days)
	}
	if days := start.DaysUntil(Date{Year: 2026, Month: time.February, Day: 27}); days != -2 {
		t.Fatalf("expected -2 days, got %d", days)
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := Date{Year: 2028, Month: time.February, Day: 17}.MonthBounds()
	if first.String() != "2028-02-01" || last.String() != "2028-02-29" {
		t.Fatalf("expected leap February bounds, got %s..%s", first, last)
	}
	first, last = Date{Year: 2026, Month: time.December, Day: 31}.MonthBounds()
	if first.String() != "2026-12-01" || last.String() != "2026-12-31" {
		t.Fatalf("expected December bounds, got %s..%s", first, last)
	}
}
