package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionConfig holds the tiered commission schedule and the simulated
// gateway fee model. It is injected so tests can vary tiers without
// process-wide state.
type CommissionConfig struct {
	BasePercent decimal.Decimal

	// Larger purchases earn the instructor a lower commission rate.
	Tier1Threshold decimal.Decimal
	Tier1Discount  decimal.Decimal
	Tier2Threshold decimal.Decimal
	Tier2Discount  decimal.Decimal

	// Gateway fee: fixed + percent of gross, deducted before the split.
	GatewayFeeFixed   decimal.Decimal
	GatewayFeePercent decimal.Decimal

	MinCommission      decimal.Decimal
	MaxCommissionShare decimal.Decimal
}

func DefaultCommissionConfig() CommissionConfig {
	return CommissionConfig{
		BasePercent:        decimal.NewFromInt(20),
		Tier1Threshold:     decimal.NewFromInt(200),
		Tier1Discount:      decimal.NewFromInt(2),
		Tier2Threshold:     decimal.NewFromInt(1000),
		Tier2Discount:      decimal.NewFromInt(5),
		GatewayFeeFixed:    decimal.NewFromFloat(0.30),
		GatewayFeePercent:  decimal.NewFromFloat(2.9),
		MinCommission:      decimal.NewFromInt(1),
		MaxCommissionShare: decimal.NewFromFloat(0.5),
	}
}

// Split is the decomposition of a gross payment.
type Split struct {
	PlatformCommission decimal.Decimal
	InstructorEarnings decimal.Decimal
}

type CommissionCalculator struct {
	cfg CommissionConfig
}

func NewCommissionCalculator(cfg CommissionConfig) *CommissionCalculator {
	return &CommissionCalculator{cfg: cfg}
}

var oneHundred = decimal.NewFromInt(100)

// CalculateSplit decomposes a gross amount into platform commission and
// instructor earnings. All rounding is half-up at two decimal places so the
// result is reproducible for later refund-ratio scaling.
func (c *CommissionCalculator) CalculateSplit(gross decimal.Decimal, instructorID uuid.UUID) (Split, error) {
	if !gross.IsPositive() {
		return Split{}, ErrInvalidAmount
	}

	percent := c.cfg.BasePercent
	if gross.GreaterThanOrEqual(c.cfg.Tier2Threshold) {
		percent = percent.Sub(c.cfg.Tier2Discount)
	} else if gross.GreaterThanOrEqual(c.cfg.Tier1Threshold) {
		percent = percent.Sub(c.cfg.Tier1Discount)
	}

	fee := c.cfg.GatewayFeeFixed.Add(gross.Mul(c.cfg.GatewayFeePercent).Div(oneHundred)).Round(2)
	net := gross.Sub(fee)

	commission := net.Mul(percent).Div(oneHundred).Round(2)

	maxCommission := gross.Mul(c.cfg.MaxCommissionShare).Round(2)
	if commission.LessThan(c.cfg.MinCommission) {
		commission = c.cfg.MinCommission
	}
	if commission.GreaterThan(maxCommission) {
		commission = maxCommission
	}

	earnings := net.Sub(commission).Round(2)

	return Split{PlatformCommission: commission, InstructorEarnings: earnings}, nil
}
