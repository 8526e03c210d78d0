package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func mustSplit(t *testing.T, calc *CommissionCalculator, gross float64) Split {
	t.Helper()
	split, err := calc.CalculateSplit(decimal.NewFromFloat(gross), uuid.New())
	if err != nil {
		t.Fatalf("CalculateSplit(%v): %v", gross, err)
	}
	return split
}

// Canonical split: gross 100, fee 0.30 + 2.9% = 3.20, net 96.80,
// commission 20% of net = 19.36, earnings 77.44.
func TestCalculateSplitBaseRate(t *testing.T) {
	calc := NewCommissionCalculator(DefaultCommissionConfig())

	split := mustSplit(t, calc, 100)
	if got := split.PlatformCommission.StringFixed(2); got != "19.36" {
		t.Errorf("commission: got %s, want 19.36", got)
	}
	if got := split.InstructorEarnings.StringFixed(2); got != "77.44" {
		t.Errorf("earnings: got %s, want 77.44", got)
	}

	total := split.PlatformCommission.Add(split.InstructorEarnings)
	if total.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("commission + earnings = %s exceeds gross", total)
	}
}

func TestCalculateSplitDeterministic(t *testing.T) {
	calc := NewCommissionCalculator(DefaultCommissionConfig())
	instructorID := uuid.New()

	first, err := calc.CalculateSplit(decimal.NewFromFloat(249.99), instructorID)
	if err != nil {
		t.Fatalf("CalculateSplit: %v", err)
	}
	second, err := calc.CalculateSplit(decimal.NewFromFloat(249.99), instructorID)
	if err != nil {
		t.Fatalf("CalculateSplit: %v", err)
	}

	if !first.PlatformCommission.Equal(second.PlatformCommission) || !first.InstructorEarnings.Equal(second.InstructorEarnings) {
		t.Errorf("identical inputs produced different splits: %+v vs %+v", first, second)
	}
}

func TestCalculateSplitTierDiscounts(t *testing.T) {
	calc := NewCommissionCalculator(DefaultCommissionConfig())

	// Tier 1: gross 500, fee 14.80, net 485.20, 18% = 87.34.
	tier1 := mustSplit(t, calc, 500)
	if got := tier1.PlatformCommission.StringFixed(2); got != "87.34" {
		t.Errorf("tier1 commission: got %s, want 87.34", got)
	}

	// Tier 2: gross 1000, fee 29.30, net 970.70, 15% = 145.61.
	tier2 := mustSplit(t, calc, 1000)
	if got := tier2.PlatformCommission.StringFixed(2); got != "145.61" {
		t.Errorf("tier2 commission: got %s, want 145.61", got)
	}
	if got := tier2.InstructorEarnings.StringFixed(2); got != "825.09" {
		t.Errorf("tier2 earnings: got %s, want 825.09", got)
	}
}

func TestCalculateSplitClamps(t *testing.T) {
	calc := NewCommissionCalculator(DefaultCommissionConfig())

	// Small gross: raw commission 0.91 is lifted to the 1.00 floor.
	small := mustSplit(t, calc, 5)
	if got := small.PlatformCommission.StringFixed(2); got != "1.00" {
		t.Errorf("floor commission: got %s, want 1.00", got)
	}

	// Tiny gross: the floor would exceed half of gross, so the 50% cap wins.
	tiny := mustSplit(t, calc, 1)
	if got := tiny.PlatformCommission.StringFixed(2); got != "0.50" {
		t.Errorf("capped commission: got %s, want 0.50", got)
	}
	if tiny.PlatformCommission.GreaterThan(decimal.NewFromFloat(0.5)) {
		t.Errorf("commission %s exceeds half of gross", tiny.PlatformCommission)
	}
}

func TestCalculateSplitRejectsNonPositive(t *testing.T) {
	calc := NewCommissionCalculator(DefaultCommissionConfig())

	for _, gross := range []float64{0, -1, -100.50} {
		_, err := calc.CalculateSplit(decimal.NewFromFloat(gross), uuid.New())
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("CalculateSplit(%v): got %v, want ErrInvalidAmount", gross, err)
		}
	}
}

func TestCalculateSplitConfigurableTiers(t *testing.T) {
	cfg := DefaultCommissionConfig()
	cfg.BasePercent = decimal.NewFromInt(30)
	cfg.Tier1Threshold = decimal.NewFromInt(50)
	cfg.Tier1Discount = decimal.NewFromInt(10)
	calc := NewCommissionCalculator(cfg)

	// gross 60 crosses the custom tier: fee 2.04, net 57.96, 20% = 11.59.
	split := mustSplit(t, calc, 60)
	if got := split.PlatformCommission.StringFixed(2); got != "11.59" {
		t.Errorf("custom tier commission: got %s, want 11.59", got)
	}
}
